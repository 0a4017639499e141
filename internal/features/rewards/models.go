// Package rewards реализует начисление orbit points: движок наград,
// шлюз доверия (credibility) и попарный ограничитель благодарностей.
package rewards

// AwardRequest — запрос на начисление.
type AwardRequest struct {
	UserID      int64
	ActionType  string
	Description string
	SourceID    *string
	// Points переопределяет reward_config.points (например, оплата консультации).
	Points *int64
	// Strict: при исчерпанном дневном лимите вернуть ErrLimitExceeded
	// вместо нулевого начисления.
	Strict bool
}

// AwardResult — итог начисления. Attempted и Awarded различаются,
// когда сработал дневной лимит.
type AwardResult struct {
	Attempted     int64  `json:"attempted"`
	Awarded       int64  `json:"awarded"`
	TransactionID string `json:"transactionId,omitempty"`
	Balance       int64  `json:"balance"`
	Capped        bool   `json:"capped"`
}
