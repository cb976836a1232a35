// Package console is the operator side of the server: the dispatcher that
// runs kit follow-up commands and the interactive admin prompt.
package console

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
)

// historySize bounds the commands kept for inspection.
const historySize = 100

// Dispatcher runs follow-up commands with console authority. Without a game
// server attached, running a command means logging it.
type Dispatcher struct {
	logger  logging.Logger
	mu      sync.Mutex
	history []string
}

func NewDispatcher(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Dispatcher{logger: logger.With("module", "console")}
}

func (d *Dispatcher) RunAsConsole(ctx context.Context, command string) error {
	d.mu.Lock()
	d.history = append(d.history, command)
	if len(d.history) > historySize {
		d.history = d.history[len(d.history)-historySize:]
	}
	d.mu.Unlock()

	d.logger.Info(ctx, "console command", "command", command)
	return nil
}

// History returns the most recent commands, oldest first.
func (d *Dispatcher) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}
