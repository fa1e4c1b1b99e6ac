// Package alerts manages user-defined price alerts: a client-local persisted
// list, threshold evaluation against the latest price snapshot, and
// notification dispatch.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition selects which side of the threshold triggers an alert.
type Condition string

// Supported threshold conditions.
const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// ParseCondition validates a user-supplied condition string.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case ConditionAbove, ConditionBelow:
		return Condition(s), nil
	default:
		return "", fmt.Errorf("unknown alert condition %q (want above or below)", s)
	}
}

// Alert is one user-defined price threshold. Triggered reflects only the most
// recent evaluation.
type Alert struct {
	ID          string          `json:"id"`
	Commodity   string          `json:"commodity"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	Condition   Condition       `json:"condition"`
	IsActive    bool            `json:"isActive"`
	Triggered   bool            `json:"triggered"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// New mints an active, untriggered alert.
func New(commodity string, target decimal.Decimal, condition Condition) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Commodity:   commodity,
		TargetPrice: target,
		Condition:   condition,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
}
