package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/dyluth/switchboard/pkg/crunch"
)

// Console replies meaning "nothing to list".
const (
	noConferences  = "No active MeetMe conferences."
	noParticipants = "No active conferences."
)

// ConferencePattern parses the "meetme" listing.
var ConferencePattern = crunch.MustCompile(
	`(?P<number>\d+)\s+(?P<parties>0*\d+)\s+(?P<marked>.+?)\s+(?P<activity>\d\d:\d\d:\d\d)\s+(?P<creation>\S+)(?:\s+(?P<locked>\S+))?`,
	`\*\s+Total number of MeetMe users:\s+(?P<users>\d+)`,
)

// ParticipantPattern parses the "meetme list <room>" listing.
var ParticipantPattern = crunch.MustCompile(
	`User #:\s+(?P<user>\d+)\s+(?P<exten>\d+)\s+(?P<name>.+?)\s+Channel:\s+(?P<channel>.+?)\s+(?P<status>\(.+\))\s+(?P<duration>\d\d:\d\d:\d\d)`,
	`(?P<number>\d+) users in that conference\.`,
)

// Conference is a conference room.
type Conference struct {
	Number string

	m    Manager
	info lazySnapshot
}

// NewConference returns a view of room number. Its first Snapshot call
// queries the switch.
func NewConference(m Manager, number string) *Conference {
	c := &Conference{Number: number, m: m}
	c.info.fetch = func(ctx context.Context) (Snapshot, error) {
		rows, err := fetchConferences(ctx, m)
		if err != nil {
			return Snapshot{}, err
		}
		for _, row := range rows {
			if row.Value("number") == number {
				return conferenceSnapshot(row), nil
			}
		}
		return Snapshot{}, &ami.NotFoundError{Kind: ami.NotFoundConference, Name: number, Message: "no such conference"}
	}
	return c
}

// ListConferences returns every active conference room.
func ListConferences(ctx context.Context, m Manager) ([]*Conference, error) {
	rows, err := fetchConferences(ctx, m)
	if err != nil {
		return nil, err
	}
	out := make([]*Conference, 0, len(rows))
	for _, row := range rows {
		c := NewConference(m, row.Value("number"))
		c.info.seed(conferenceSnapshot(row))
		out = append(out, c)
	}
	return out, nil
}

func fetchConferences(ctx context.Context, m Manager) ([]crunch.Row, error) {
	out, err := m.ExecuteCommand(ctx, "meetme")
	if err != nil {
		return nil, err
	}
	if out == noConferences {
		return nil, nil
	}
	return ConferencePattern.Apply(out).Rows, nil
}

// conferenceSnapshot drops the room number, which the view already carries,
// and stores parties as an int.
func conferenceSnapshot(row crunch.Row) Snapshot {
	var s Snapshot
	for _, f := range row.Fields() {
		if f.Name == "number" || !f.Present {
			continue
		}
		if f.Name == "parties" {
			if n, err := strconv.Atoi(f.Value); err == nil {
				s.set(f.Name, n)
				continue
			}
		}
		s.set(f.Name, f.Value)
	}
	return s
}

// String returns the room number.
func (c *Conference) String() string {
	return c.Number
}

// Snapshot returns the room's listing fields. A room obtained from
// ListConferences serves its listing data on the first call; every other
// call queries the switch.
func (c *Conference) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.info.get(ctx)
}

// Participants lists the users in the room.
func (c *Conference) Participants(ctx context.Context) ([]crunch.Row, error) {
	out, err := c.m.ExecuteCommand(ctx, "meetme list "+c.Number)
	if err != nil {
		return nil, err
	}
	if out == "" || out == noParticipants {
		return nil, nil
	}
	return ParticipantPattern.Apply(out).Rows, nil
}

// Lock stops new users from joining.
func (c *Conference) Lock(ctx context.Context) (string, error) {
	return c.m.ExecuteCommand(ctx, "meetme lock "+c.Number)
}

// Unlock lets new users join again.
func (c *Conference) Unlock(ctx context.Context) (string, error) {
	return c.m.ExecuteCommand(ctx, "meetme unlock "+c.Number)
}

// Kick removes a user from the room.
func (c *Conference) Kick(ctx context.Context, user string) (string, error) {
	return c.m.ExecuteCommand(ctx, fmt.Sprintf("meetme kick %s %s", c.Number, user))
}

// KickAll removes every user from the room.
func (c *Conference) KickAll(ctx context.Context) (string, error) {
	return c.Kick(ctx, "all")
}

// Mute mutes a user.
func (c *Conference) Mute(ctx context.Context, user string) (string, error) {
	return c.m.ExecuteCommand(ctx, fmt.Sprintf("meetme mute %s %s", c.Number, user))
}

// Unmute unmutes a user.
func (c *Conference) Unmute(ctx context.Context, user string) (string, error) {
	return c.m.ExecuteCommand(ctx, fmt.Sprintf("meetme unmute %s %s", c.Number, user))
}
