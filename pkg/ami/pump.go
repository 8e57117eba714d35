package ami

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
)

// pump is the single reader of the transport. It processes blocks strictly in
// arrival order and stops at end of stream, on a read error, or on Close.
func (c *Client) pump() {
	defer close(c.done)

	for {
		block, err := c.transport.ReadBlock()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Printf("[Pump] End of stream, stopping")
			case c.closing.Load():
				log.Printf("[Pump] Transport closed, stopping")
			default:
				c.setErr(err)
				c.bus.Report(fmt.Errorf("read block: %w", err))
			}
			return
		}
		c.handleBlock(block)
	}
}

func (c *Client) handleBlock(block string) {
	r, err := DecodeStrict(block)
	if err != nil {
		c.bus.Report(err)
	}

	entry := c.events.Append(r)
	for _, s := range c.sinks {
		c.appendToSink(s, entry)
	}

	c.bus.Dispatch(r)
}

// appendToSink runs on the pump goroutine, so a stalled sink would stall
// every reply. Each append gets its own deadline.
func (c *Client) appendToSink(s Sink, entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), c.sinkTimeout)
	defer cancel()
	if err := s.Append(ctx, entry); err != nil {
		c.bus.Report(fmt.Errorf("sink append seq %d: %w", entry.Seq, err))
	}
}
