package eventsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyPatterns(t *testing.T) {
	assert.Equal(t, "switchboard:sessions", SessionsKey())
	assert.Equal(t, "switchboard:desk-1:events", EventsKey("desk-1"))
	assert.Equal(t, "switchboard:desk-1:record_events", RecordEventsChannel("desk-1"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID(NewSessionID()))
	assert.NoError(t, ValidateSessionID("desk-1"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("a:b"))
	assert.Error(t, ValidateSessionID("a*"))
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}
