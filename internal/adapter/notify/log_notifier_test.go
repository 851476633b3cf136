package notify

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(&buf, "", 0))

	err := n.Notify(context.Background(), domain.Alert{
		Kind:       domain.AlertTaskFailed,
		TaskNumber: "PCK-2026-00007",
		TaskType:   domain.TaskTypePick,
		Priority:   3,
		Message:    "aisle blocked",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	want := "alert task_failed: task PCK-2026-00007 (pick, priority 3): aisle blocked"
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNewLogNotifierDefaultsToStdLogger(t *testing.T) {
	if n := NewLogNotifier(nil); n.logger == nil {
		t.Fatal("expected default logger")
	}
}
