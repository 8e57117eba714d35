package ami

import "time"

// Wire format constants.
const (
	// lineTerminator ends every protocol line.
	lineTerminator = "\r\n"

	// BlockTerminator ends every block: a blank line after the last header.
	BlockTerminator = "\r\n\r\n"

	// headerSeparator splits a header line into key and value.
	headerSeparator = ": "

	// EndCommandMarker closes the free-form body of a Follows block.
	EndCommandMarker = "--END COMMAND--"

	// followsFirstLine marks a block that uses the Follows grammar.
	followsFirstLine = "Response: Follows"

	// DefaultPort is the manager interface TCP port.
	DefaultPort = 5038

	// DefaultContext is the dialplan context used when none is configured.
	DefaultContext = "default"

	// DialTimeout bounds connection establishment in Dial.
	DialTimeout = 5 * time.Second

	// SinkTimeout bounds each sink append made by the pump.
	SinkTimeout = 2 * time.Second
)

// Header names the client reads or writes.
const (
	HeaderAction   = "Action"
	HeaderActionID = "ActionID"
	HeaderEvent    = "Event"
	HeaderResponse = "Response"
	HeaderMessage  = "Message"
	HeaderResults  = "Results"
	HeaderStatus   = "Status"
)

// Dispatch names with special meaning to the client.
const (
	// Wildcard registers a listener for every dispatched record.
	Wildcard = "*"

	// ResponseFollows is the dispatch name of a console command reply.
	ResponseFollows = "Follows"

	// ResponseError is the dispatch name of an explicit failure reply.
	ResponseError = "Error"

	// ResponseSuccess is the dispatch name of a successful reply.
	ResponseSuccess = "Success"
)
