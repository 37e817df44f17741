package conversation

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*WriterNotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// WriterNotifier writes notifications as lines to an io.Writer. Used by the
// plain CLI subcommands; the chat UI has its own notifier.
type WriterNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	log   *logger.Logger
}

// NewWriterNotifier creates a notifier writing to out (os.Stdout if nil).
// color enables ANSI styling.
func NewWriterNotifier(out io.Writer, color bool, log *logger.Logger) *WriterNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &WriterNotifier{out: out, color: color, log: log}
}

// Notify writes a normal notification.
func (n *WriterNotifier) Notify(_ context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	return n.write(cyan, message)
}

// NotifyUrgent writes an urgent notification, bold red when colored.
func (n *WriterNotifier) NotifyUrgent(_ context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	return n.write(red, message)
}

func (n *WriterNotifier) write(color, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	if n.color {
		_, err = fmt.Fprintf(n.out, "%s%s%s%s\n", color, bold, message, reset)
	} else {
		_, err = fmt.Fprintln(n.out, message)
	}
	if err != nil {
		return fmt.Errorf("writing notification: %w", err)
	}
	return nil
}
