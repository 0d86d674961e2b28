// Package retention computes legal retention deadlines and disposes of
// documents whose deadline has passed.
package retention

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"doclife/internal/model"
)

var (
	ErrPolicyIDRequired = errors.New("retention policy id is required")
	ErrNegativeYears    = errors.New("retention years must not be negative")
	ErrUnknownMode      = errors.New("retention mode must be SOFT or HARD")
)

// Policy is a retention rule as requested by a caller.
type Policy struct {
	PolicyID string `json:"policy_id"`
	Years    int    `json:"years"`
	Mode     string `json:"mode"`
}

// ParseMode normalises a disposal mode. An empty mode means SOFT.
func ParseMode(s string) (model.DisposalMode, error) {
	switch m := model.DisposalMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return model.DisposalSoft, nil
	case model.DisposalSoft, model.DisposalHard:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Resolve validates p and computes the retention that applies from now.
func (p Policy) Resolve(now time.Time) (model.Retention, error) {
	if strings.TrimSpace(p.PolicyID) == "" {
		return model.Retention{}, ErrPolicyIDRequired
	}
	if p.Years < 0 {
		return model.Retention{}, ErrNegativeYears
	}
	mode, err := ParseMode(p.Mode)
	if err != nil {
		return model.Retention{}, err
	}
	return model.Retention{
		PolicyID: strings.TrimSpace(p.PolicyID),
		DeleteAt: ComputeExpiry(now, p.Years),
		Mode:     mode,
	}, nil
}

// ComputeExpiry adds whole calendar years. Feb 29 rolls over to Mar 1 in non-leap years.
func ComputeExpiry(now time.Time, years int) time.Time {
	return now.AddDate(years, 0, 0)
}

// LockError reports that a delete was refused because retention is still active.
type LockError struct {
	Until time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("document is under legal retention until %s and cannot be deleted", e.Until.Format("2006-01-02"))
}

// Guard returns a *LockError while r is set and now is before its deadline.
func Guard(r *model.Retention, now time.Time) error {
	if r != nil && now.Before(r.DeleteAt) {
		return &LockError{Until: r.DeleteAt}
	}
	return nil
}

// ActionFor maps a disposal mode to its audit action. Only HARD removes the row.
func ActionFor(mode model.DisposalMode) (action string, hard bool) {
	if mode == model.DisposalHard {
		return model.ActionHardDeleteExpiration, true
	}
	return model.ActionSoftDeleteExpiration, false
}

// State is where a document stands in its retention lifecycle.
type State string

const (
	StateActive        State = "ACTIVE"
	StatePendingExpiry State = "PENDING_EXPIRY"
	StateExpired       State = "EXPIRED"
	StateDisposed      State = "DISPOSED"
)

// StateOf classifies doc at now. EXPIRED documents are what the sweeper picks up.
func StateOf(doc *model.Document, now time.Time) State {
	switch {
	case doc.IsDeleted():
		return StateDisposed
	case doc.Retention == nil:
		return StateActive
	case now.Before(doc.Retention.DeleteAt):
		return StatePendingExpiry
	default:
		return StateExpired
	}
}
