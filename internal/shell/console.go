package shell

import (
	"fmt"
	"io"
	"sync"
)

// Console serialises writes from the run loop, the reaper and the kill
// confirmer onto one stream, so their lines never interleave mid-line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Printf formats to the console. Write errors are dropped.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// Sync flushes the underlying stream when it supports it.
func (c *Console) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.w.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
