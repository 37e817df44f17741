package conversation

import (
	"bytes"
	"context"
	"testing"

	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

func TestWriterNotifierPlain(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, false, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	if err := n.Notify(ctx, "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.NotifyUrgent(ctx, "Timer finished: simmer"); err != nil {
		t.Fatalf("notify urgent: %v", err)
	}

	want := "hello\nTimer finished: simmer\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestWriterNotifierColor(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, true, logger.New(logger.LevelOff, nil))
	if err := n.NotifyUrgent(context.Background(), "x"); err != nil {
		t.Fatalf("notify urgent: %v", err)
	}
	if got := buf.String(); got != red+bold+"x"+reset+"\n" {
		t.Fatalf("got %q", got)
	}
}
