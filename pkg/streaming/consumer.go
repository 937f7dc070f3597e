package streaming

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"ai-askdata-be/internal/pkg/logger"
)

// Opener opens a live answer stream for a task or response id.
type Opener interface {
	OpenStream(ctx context.Context, id string) (io.ReadCloser, error)
}

// Consumer manages a single live answer stream. Starting a new stream tears
// down any previous one, so at most one connection is open per consumer.
type Consumer struct {
	opener Opener
	logger logger.ILogger

	mu      sync.Mutex
	buf     strings.Builder
	loading bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewConsumer(opener Opener, log logger.ILogger) *Consumer {
	return &Consumer{
		opener: opener,
		logger: log,
	}
}

// Start opens a stream for id and accumulates message fragments until the done
// marker arrives. Any previously open stream is reset first.
func (c *Consumer) Start(ctx context.Context, id string) error {
	c.Reset()

	streamCtx, cancel := context.WithCancel(ctx)

	body, err := c.opener.OpenStream(streamCtx, id)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})

	c.mu.Lock()
	c.loading = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.consume(id, body, done)
	return nil
}

func (c *Consumer) consume(id string, body io.ReadCloser, done chan struct{}) {
	defer close(done)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		frame, ok := ParseFrame(scanner.Bytes())
		if !ok {
			continue
		}
		if frame.Done {
			c.mu.Lock()
			c.loading = false
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.buf.WriteString(frame.Message)
		c.mu.Unlock()
	}

	// Network-level error or cancellation: stop loading but keep whatever was
	// accumulated so the caller can inspect the partial answer.
	if err := scanner.Err(); err != nil && c.logger != nil {
		c.logger.Warn("Streaming", "Answer stream closed before done marker", map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		})
	}
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

// Data returns the accumulated answer text so far.
func (c *Consumer) Data() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Loading reports whether a stream is still producing fragments.
func (c *Consumer) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Reset cancels any in-flight stream and clears the buffer. This is the only
// client-side way to cancel an open stream.
func (c *Consumer) Reset() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.buf.Reset()
	c.loading = false
	c.mu.Unlock()
}
