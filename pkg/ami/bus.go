package ami

import (
	"log"
	"sync"
)

// HandlerFunc receives a dispatched record. Each invocation gets its own copy.
type HandlerFunc func(Record)

// Listener is a registration handle. The same handle may be attached under
// several names; Detach matches on the handle, not the function.
type Listener struct {
	fn HandlerFunc
}

// NewListener wraps fn in a handle suitable for Attach and Detach.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{fn: fn}
}

// diagnosticsBuffer is the capacity of the Errors channel. Failures reported
// while it is full are logged and dropped.
const diagnosticsBuffer = 64

// Bus routes decoded records to the listeners registered under their
// dispatch name and under the Wildcard name.
//
// Listeners run concurrently in their own goroutines; Dispatch never waits
// for them. A panicking listener is recovered and reported on Errors.
// The Bus is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener

	inflight sync.WaitGroup
	errors   chan error
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[string][]*Listener),
		errors:    make(chan error, diagnosticsBuffer),
	}
}

// Attach registers l under every name. Attaching the same handle twice under
// one name registers it twice.
func (b *Bus) Attach(l *Listener, names ...string) error {
	if l == nil || l.fn == nil {
		return ErrInvalidCallback
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		b.listeners[name] = append(b.listeners[name], l)
	}
	return nil
}

// On is a shorthand for attaching fn under a single name.
func (b *Bus) On(name string, fn HandlerFunc) (*Listener, error) {
	l := NewListener(fn)
	if err := b.Attach(l, name); err != nil {
		return nil, err
	}
	return l, nil
}

// DetachAll removes and returns every listener registered under name.
// Unknown names return nil.
func (b *Bus) DetachAll(name string) []*Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls, ok := b.listeners[name]
	if !ok {
		return nil
	}
	delete(b.listeners, name)
	return ls
}

// Detach removes the first registration of l under name and returns it,
// or nil when l is not registered there.
func (b *Bus) Detach(name string, l *Listener) *Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[name]
	for i, cur := range ls {
		if cur != l {
			continue
		}
		rest := make([]*Listener, 0, len(ls)-1)
		rest = append(rest, ls[:i]...)
		rest = append(rest, ls[i+1:]...)
		if len(rest) == 0 {
			delete(b.listeners, name)
		} else {
			b.listeners[name] = rest
		}
		return cur
	}
	return nil
}

// Listeners returns the handles currently registered under name.
func (b *Bus) Listeners(name string) []*Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Listener, len(b.listeners[name]))
	copy(out, b.listeners[name])
	return out
}

// Dispatch invokes every listener registered under the record's name and
// under Wildcard, each in its own goroutine, and returns immediately.
func (b *Bus) Dispatch(r Record) {
	name := r.Name()

	b.mu.RLock()
	targets := make([]*Listener, 0, len(b.listeners[name])+len(b.listeners[Wildcard]))
	targets = append(targets, b.listeners[name]...)
	if name != Wildcard {
		targets = append(targets, b.listeners[Wildcard]...)
	}
	b.mu.RUnlock()

	for _, l := range targets {
		b.inflight.Add(1)
		go b.invoke(l, name, r.Clone())
	}
}

func (b *Bus) invoke(l *Listener, name string, r Record) {
	defer b.inflight.Done()
	defer func() {
		if p := recover(); p != nil {
			b.Report(&ListenerError{Event: name, Panic: p})
		}
	}()
	l.fn(r)
}

// Wait blocks until every listener goroutine started so far has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Errors returns the diagnostic channel. It carries recovered listener
// panics, undecodable blocks, sink failures and transport read errors.
func (b *Bus) Errors() <-chan error {
	return b.errors
}

// Report logs err and queues it on the diagnostic channel without blocking.
func (b *Bus) Report(err error) {
	log.Printf("[Bus] %v", err)
	select {
	case b.errors <- err:
	default:
	}
}
