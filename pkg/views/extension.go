package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/switchboard/pkg/ami"
)

// ExtensionStatus is the state code returned by ExtensionState.
type ExtensionStatus int

const (
	StatusNotFound    ExtensionStatus = -1
	StatusIdle        ExtensionStatus = 0
	StatusInUse       ExtensionStatus = 1
	StatusBusy        ExtensionStatus = 2
	StatusUnavailable ExtensionStatus = 4
	StatusRinging     ExtensionStatus = 8
	StatusOnHold      ExtensionStatus = 16
)

var statusNames = map[ExtensionStatus]string{
	StatusNotFound:    "NotFound",
	StatusIdle:        "Idle",
	StatusInUse:       "InUse",
	StatusBusy:        "Busy",
	StatusUnavailable: "Unavailable",
	StatusRinging:     "Ringing",
	StatusOnHold:      "OnHold",
}

func (s ExtensionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ExtensionStatus(%d)", int(s))
}

// Extension is a dialplan extension in a context.
type Extension struct {
	Name    string
	Context string

	m Manager
}

// NewExtension returns a view of exten. An empty context uses the client's
// default context.
func NewExtension(m Manager, exten, dialplanContext string) *Extension {
	return &Extension{Name: exten, Context: dialplanContext, m: m}
}

func (e *Extension) String() string {
	return e.Name + "@" + e.context()
}

func (e *Extension) context() string {
	if e.Context != "" {
		return e.Context
	}
	return e.m.DefaultContext()
}

// Status asks the switch for the extension's state and waits for the reply
// carrying the request's ActionID. A NotFound state is returned as a
// *ami.NotFoundError.
func (e *Extension) Status(ctx context.Context) (ExtensionStatus, error) {
	opts := ami.NewRecord(
		ami.HeaderActionID, ami.NewActionID("ExtensionState"),
		"Exten", e.Name,
		"Context", e.context(),
	)
	reply, err := e.m.Request(ctx, "ExtensionState", opts)
	if err != nil {
		return StatusNotFound, err
	}

	raw := strings.TrimSpace(reply.Value(ami.HeaderStatus))
	code, err := strconv.Atoi(raw)
	if err != nil {
		return StatusNotFound, fmt.Errorf("extension %s: invalid status %q: %w", e, raw, err)
	}
	status := ExtensionStatus(code)
	if status == StatusNotFound {
		return status, &ami.NotFoundError{Kind: ami.NotFoundExtension, Name: e.String(), Message: "extension not found"}
	}
	return status, nil
}
