package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is the context of a long-running command (play, serve, mcp).
// It is cancelled on SIGINT or SIGTERM and remembers which signal ended the
// command so the shutdown log can name it.
type SignalContext struct {
	context.Context
	Cancel func()

	mu     sync.Mutex
	caught os.Signal
}

// NewSignalContext derives a SignalContext from the command context. The
// signal subscription ends with the context.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			sc.mu.Lock()
			sc.caught = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that stopped the command, or nil when it ended
// some other way.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.caught
}
