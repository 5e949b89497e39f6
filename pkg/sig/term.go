package sig

import (
	"context"
	"os/signal"
	"syscall"
)

// TermContext is cancelled on the first SIGINT or SIGTERM.
func TermContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}
