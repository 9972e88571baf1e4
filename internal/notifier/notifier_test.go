package notifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kukhmax/ai-trade/internal/signal"
)

func TestFormatSignal(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Actionable", func(t *testing.T) {
		msg := FormatSignal(signal.Signal{
			Time: ts, Symbol: "BTCUSDT", Action: signal.Buy,
			Confidence: 0.72, Entry: 42300, StopLoss: 41454, TakeProfit: 44838,
			Rationale: "technical bullish",
		})
		assert.Contains(t, msg, "BTCUSDT")
		assert.Contains(t, msg, "buy @ 42300.00")
		assert.Contains(t, msg, "stop 41454.00 / target 44838.00")
		assert.Contains(t, msg, "technical bullish")
	})

	t.Run("Hold omits levels", func(t *testing.T) {
		msg := FormatSignal(signal.Signal{Time: ts, Symbol: "BTCUSDT", Action: signal.Hold, Confidence: 0.1})
		assert.Contains(t, msg, "hold")
		assert.NotContains(t, msg, "stop")
	})
}

type flakyNotifier struct {
	failures int
	calls    int
}

func (f *flakyNotifier) Send(msg string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("telegram unreachable")
	}
	return nil
}

func (f *flakyNotifier) SendWithRetry(msg string) error {
	return SendWithRetry(f, msg, 3, 0)
}

func TestSendWithRetry(t *testing.T) {
	t.Run("Recovers after transient failure", func(t *testing.T) {
		n := &flakyNotifier{failures: 2}
		assert.NoError(t, SendWithRetry(n, "hi", 3, 0))
		assert.Equal(t, 3, n.calls)
	})

	t.Run("Gives up after all attempts", func(t *testing.T) {
		n := &flakyNotifier{failures: 10}
		err := SendWithRetry(n, "hi", 3, 0)
		assert.Error(t, err)
		assert.Equal(t, 3, n.calls)
	})
}
