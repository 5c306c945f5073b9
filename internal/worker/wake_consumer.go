package worker

import (
	"context"
	"log/slog"

	"github.com/nsqio/go-nsq"
)

// WakeConsumer turns wake messages into worker passes so freshly ingested
// chunks get embedded without waiting for the next scheduled run.
type WakeConsumer struct {
	runner *Runner
}

func NewWakeConsumer(runner *Runner) *WakeConsumer {
	return &WakeConsumer{runner: runner}
}

func (c *WakeConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx := context.Background()
	report, err := c.runner.Run(ctx)
	if err != nil {
		// Returning the error requeues the wake message. The queue itself
		// holds the jobs, so a dropped wake only delays them.
		slog.Error("wake-triggered worker pass failed", "error", err)
		return err
	}

	// Keep draining while full batches come back, a burst of ingests can
	// enqueue more jobs than one pass covers.
	for report.Read > 0 && report.Read >= c.runner.batchSize {
		report, err = c.runner.Run(ctx)
		if err != nil {
			slog.Error("wake-triggered worker pass failed", "error", err)
			return err
		}
	}

	return nil
}
