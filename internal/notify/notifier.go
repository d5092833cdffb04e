package notify

import (
	"context"
	"log/slog"
)

// Message is one notification rendered for every transport.
type Message struct {
	Subject   string
	Text      string // plain text, email and webhooks
	HTML      string // Telegram caption markup
	Image     []byte // PNG chart, may be empty
	ImageName string
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

type Result struct {
	Transport string
	Err       error
}

// Dispatch hands msg to every notifier in turn. A failing transport is
// logged and does not stop the others.
func Dispatch(ctx context.Context, notifiers []Notifier, msg Message) []Result {
	results := make([]Result, 0, len(notifiers))
	for _, n := range notifiers {
		logger := slog.With("transport", n.Name())
		err := n.Notify(ctx, msg)
		if err != nil {
			logger.Error("Failed to send notification", "error", err)
		} else {
			logger.Info("Notification sent")
		}
		results = append(results, Result{Transport: n.Name(), Err: err})
	}
	return results
}
