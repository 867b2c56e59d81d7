package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-sod/dtree/internal/logging"
)

// New returns a context that is cancelled on SIGINT or SIGTERM, carrying the
// default logger.
func New() (context.Context, func()) {
	ctx := logging.WithLogger(context.Background(), logging.DefaultLogger())
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
