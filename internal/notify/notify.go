// Package notify turns stock statuses and fetch failures into channel
// announcements.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Sender delivers a plain text message to the announcement channel.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Notifier decides which statuses are announced and sends them.
type Notifier struct {
	sender Sender
	logger *zap.Logger
}

// New constructs a Notifier.
func New(sender Sender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, logger: logger}
}

// Message returns the announcement for status s, or false when s is not
// announced.
func Message(p stock.Product, s stock.Status) (string, bool) {
	name := p.DisplayName()
	switch s {
	case stock.AddToCart:
		return fmt.Sprintf("The %s is available for purchase! %s", name, p.URL), true
	case stock.ComingSoon:
		return fmt.Sprintf("The %s is coming soon.", name), true
	case stock.NotFound:
		return fmt.Sprintf("Stock status not found for the %s.", name), true
	default:
		return "", false
	}
}

// FailureMessage returns the announcement for a failed fetch.
func FailureMessage(p stock.Product, err error) string {
	return fmt.Sprintf("Error checking the %s: %s", p.DisplayName(), Reason(err))
}

// Reason renders a fetch error as a short user-facing phrase.
func Reason(err error) string {
	var statusErr *stock.StatusError
	if errors.As(err, &statusErr) {
		if text := http.StatusText(statusErr.StatusCode); text != "" {
			return fmt.Sprintf("HTTP %d %s", statusErr.StatusCode, text)
		}
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	}
	var transportErr *stock.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return "request timed out"
		}
		return "site unreachable"
	}
	return "unexpected error"
}

// Notify announces status s for product p when it is announceable. It
// reports whether a message was sent.
func (n *Notifier) Notify(ctx context.Context, p stock.Product, s stock.Status) (bool, error) {
	msg, ok := Message(p, s)
	if !ok {
		return false, nil
	}
	return true, n.send(ctx, s.Key(), msg)
}

// FetchFailed announces that product p could not be checked.
func (n *Notifier) FetchFailed(ctx context.Context, p stock.Product, fetchErr error) error {
	return n.send(ctx, "fetch_error", FailureMessage(p, fetchErr))
}

func (n *Notifier) send(ctx context.Context, kind, msg string) error {
	err := n.sender.SendMessage(ctx, msg)
	metrics.ObserveNotification(kind, err == nil)
	if err != nil {
		n.logger.Error("send announcement failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("send %s announcement: %w", kind, err)
	}
	return nil
}

// WriterSender writes announcements to an io.Writer, one per line.
type WriterSender struct {
	mu sync.Mutex
	W  io.Writer
}

// SendMessage implements Sender.
func (w *WriterSender) SendMessage(_ context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.W, text)
	return err
}
