// Package notifier
package notifier

import (
	"fmt"
	"log"
	"time"

	"github.com/kukhmax/ai-trade/internal/signal"
)

// Notifier delivers signal alerts (e.g., Telegram).
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Noop drops all messages; used when no notifier is configured.
type Noop struct{}

func (Noop) Send(msg string) error          { return nil }
func (Noop) SendWithRetry(msg string) error { return nil }

// FormatSignal renders a signal as an alert message.
func FormatSignal(sig signal.Signal) string {
	if sig.Action == signal.Hold {
		return fmt.Sprintf("%s %s: hold (confidence %.2f)\n%s",
			sig.Symbol, sig.Time.Format(time.RFC3339), sig.Confidence, sig.Rationale)
	}
	return fmt.Sprintf("%s %s: %s @ %.2f (confidence %.2f)\nstop %.2f / target %.2f\n%s",
		sig.Symbol, sig.Time.Format(time.RFC3339), sig.Action, sig.Entry, sig.Confidence,
		sig.StopLoss, sig.TakeProfit, sig.Rationale)
}

// SendWithRetry wraps a notifier's Send with fixed-delay retries.
func SendWithRetry(n Notifier, msg string, attempts int, delay time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = n.Send(msg); err == nil {
			return nil
		}
		log.Printf("SendWithRetry | attempt %d/%d failed: %v", i, attempts, err)
		time.Sleep(delay)
	}
	return fmt.Errorf("all %d notification attempts failed: %w", attempts, err)
}
