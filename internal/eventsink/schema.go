package eventsink

import "fmt"

// Redis key pattern helpers
//
// Keys and Pub/Sub channels are namespaced by session so several switchboard
// processes can mirror into one Redis server without interference.
//
// Key pattern: switchboard:{session}:{entity}
// Channel pattern: switchboard:{session}:record_events

// SessionsKey returns the Redis key of the set of known sessions.
// Pattern: switchboard:sessions
func SessionsKey() string {
	return "switchboard:sessions"
}

// EventsKey returns the Redis key of a session's record list.
// Pattern: switchboard:{session}:events
func EventsKey(session string) string {
	return fmt.Sprintf("switchboard:%s:events", session)
}

// RecordEventsChannel returns the Pub/Sub channel records are published on.
// Pattern: switchboard:{session}:record_events
func RecordEventsChannel(session string) string {
	return fmt.Sprintf("switchboard:%s:record_events", session)
}
