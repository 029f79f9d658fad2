package meter

import (
	"log/slog"

	"github.com/ineyio/aiguard"
)

// LogMeter logs guard events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ aiguard.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnAdmit(e aiguard.AdmitEvent) {
	if e.Allowed {
		m.Logger.Info("admit",
			"request_id", e.RequestID,
			"identity", e.Identity,
			"count", e.Count,
			"mode", e.Mode,
			"estimated_tokens", e.EstimatedTokens,
			"token_status", string(e.TokenStatus),
		)
	} else {
		m.Logger.Warn("admit_denied",
			"request_id", e.RequestID,
			"identity", e.Identity,
			"count", e.Count,
			"mode", e.Mode,
			"retry_after_ms", e.RetryAfter.Milliseconds(),
		)
	}
}

func (m *LogMeter) OnSpend(e aiguard.SpendEvent) {
	if e.Blocked {
		m.Logger.Warn("spend_blocked",
			"cost_cents", e.CostCents,
			"hourly_spent_cents", e.HourlySpent,
			"daily_spent_cents", e.DailySpent,
		)
	} else {
		m.Logger.Info("spend",
			"cost_cents", e.CostCents,
			"hourly_spent_cents", e.HourlySpent,
			"daily_spent_cents", e.DailySpent,
		)
	}
}
