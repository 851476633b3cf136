package notify

import (
	"context"
	"log"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

type Logger interface {
	Printf(format string, args ...any)
}

// LogNotifier writes alerts to the process log. It stands in for a
// paging or chat integration.
type LogNotifier struct {
	logger Logger
}

func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	n.logger.Printf("alert %s: task %s (%s, priority %d): %s",
		alert.Kind, alert.TaskNumber, alert.TaskType, alert.Priority, alert.Message)
	return nil
}
