// Package keepalive pings a manager session on a cron schedule so idle
// connections are kept open and dead ones are noticed.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/robfig/cron/v3"
)

// ErrUnresponsive is returned by Run after too many consecutive failed pings.
var ErrUnresponsive = errors.New("manager stopped answering pings")

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxFailures = 3
)

// Requester sends an action and waits for its reply. *ami.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, name string, opts ami.Record) (ami.Record, error)
}

// Pinger runs Ping actions on a schedule.
type Pinger struct {
	client      Requester
	schedule    string
	Timeout     time.Duration // per ping
	MaxFailures int           // consecutive failures before Run gives up

	mu       sync.Mutex
	failures int
	pings    int
}

// New creates a pinger. The schedule uses standard cron syntax or an
// @every descriptor.
func New(client Requester, schedule string) (*Pinger, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid keepalive schedule %q: %w", schedule, err)
	}
	return &Pinger{
		client:      client,
		schedule:    schedule,
		Timeout:     DefaultTimeout,
		MaxFailures: DefaultMaxFailures,
	}, nil
}

// Run pings until ctx is cancelled, returning nil, or until MaxFailures
// pings in a row fail, returning ErrUnresponsive.
func (p *Pinger) Run(ctx context.Context) error {
	giveUp := make(chan struct{})
	var once sync.Once

	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() {
		if !p.PingOnce(ctx) && p.consecutiveFailures() >= p.MaxFailures {
			once.Do(func() { close(giveUp) })
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule keepalive: %w", err)
	}

	log.Printf("[Keepalive] Pinging on schedule %s", p.schedule)
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		return nil
	case <-giveUp:
		return fmt.Errorf("%w (%d consecutive failures)", ErrUnresponsive, p.consecutiveFailures())
	}
}

// PingOnce sends one Ping and records the outcome.
func (p *Pinger) PingOnce(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	_, err := p.client.Request(pingCtx, "Ping", ami.Record{})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.failures++
		log.Printf("[Keepalive] Ping failed (%d in a row): %v", p.failures, err)
		return false
	}
	if p.failures > 0 {
		log.Printf("[Keepalive] Manager answering again after %d failure(s)", p.failures)
	}
	p.failures = 0
	return true
}

// Pings returns how many pings have been sent.
func (p *Pinger) Pings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

func (p *Pinger) consecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
