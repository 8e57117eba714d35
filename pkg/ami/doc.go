// Package ami is a client for the manager protocol of a telephony switch.
//
// # Overview
//
// The manager protocol is a line-oriented text protocol over a persistent
// TCP stream. Every message is a block of CRLF-terminated "Key: Value"
// lines closed by a blank line. The client sends actions; the switch answers
// with responses and, independently, streams events.
//
// # Core Concepts
//
// A Record is one decoded block: an ordered set of headers. Its dispatch
// name is the Event header when present, otherwise the Response header.
//
// The Bus routes every record to the listeners registered under its name and
// under the Wildcard name "*". Each listener runs in its own goroutine with
// its own copy of the record, so a slow or panicking listener never stalls
// the stream. Recovered panics are reported on Client.Errors.
//
// The pump is the single goroutine that reads the transport. It decodes each
// block, appends it to the EventLog, forwards it to any Sink and dispatches
// it. End of stream stops the pump without error.
//
// Actions are correlated with replies through the ActionID header. SendAction
// returns the identifier immediately; Request and ExecuteCommand block until
// the matching reply arrives or the caller's context ends.
//
// # Console Output
//
// Console commands reply with a "Response: Follows" block whose free-form
// body ends with "--END COMMAND--". Decode splits such a block at its last
// CRLF: the head is parsed as headers and the tail becomes the Results
// header. See package crunch for turning Results into rows.
//
// # Usage Example
//
//	client, err := ami.Dial(ctx, "127.0.0.1:5038")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.On("Hangup", func(r ami.Record) {
//		log.Printf("hangup on %s", r.Value("Channel"))
//	})
//
//	if _, err := client.Login("admin", "secret", ami.Record{}); err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := client.ExecuteCommand(ctx, "core show uptime")
//
// # Thread Safety
//
// Client, Bus and EventLog are safe for concurrent use. Writes to the
// transport are serialized; reads happen only on the pump goroutine.
package ami
