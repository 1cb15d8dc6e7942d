package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPointsGranted indicates a grant approval event.
	KindPointsGranted = "points_granted"
	// KindGrantReversed indicates a grant reversal event.
	KindGrantReversed = "grant_reversed"
	// KindPointsSpent indicates a spend approval event.
	KindPointsSpent = "points_spent"
	// KindSpendReversed indicates a spend reversal event.
	KindSpendReversed = "spend_reversed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Amount      int64
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "amount", message.Amount)
	return nil
}
