package aiguard

// TokenBudgetGuard flags oversized requests before they reach the
// provider. It converts a character count into an approximate token count
// and compares it against fixed thresholds. Stateless; safe for concurrent
// use.
type TokenBudgetGuard struct {
	cfg TokenBudgetConfig
}

// NewTokenBudgetGuard creates a TokenBudgetGuard. Thresholds must satisfy
// 0 < warning < critical <= target, and CharsPerToken must be positive.
func NewTokenBudgetGuard(cfg TokenBudgetConfig) (*TokenBudgetGuard, error) {
	if cfg.CharsPerToken == 0 {
		cfg.CharsPerToken = DefaultCharsPerToken
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TokenBudgetGuard{cfg: cfg}, nil
}

// Evaluate estimates the token count for a request of the given character
// length and classifies it. Negative input is treated as zero.
func (g *TokenBudgetGuard) Evaluate(estimatedChars int64) TokenEstimate {
	if estimatedChars < 0 {
		estimatedChars = 0
	}

	tokens := int64(float64(estimatedChars) / g.cfg.CharsPerToken)

	status := TokenOK
	switch {
	case tokens >= g.cfg.CriticalThreshold:
		status = TokenCritical
	case tokens >= g.cfg.WarningThreshold:
		status = TokenWarning
	}

	return TokenEstimate{
		EstimatedTokens: tokens,
		Status:          status,
	}
}

// Thresholds returns the configured budget for health reporting.
func (g *TokenBudgetGuard) Thresholds() TokenBudgetConfig {
	return g.cfg
}
