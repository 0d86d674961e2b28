package retention

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doclife/internal/model"
)

func TestComputeExpiry(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2029, 3, 15, 10, 0, 0, 0, time.UTC), ComputeExpiry(now, 5))
	assert.Equal(t, now, ComputeExpiry(now, 0))

	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), ComputeExpiry(leap, 1))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    model.DisposalMode
		wantErr bool
	}{
		{in: "hard", want: model.DisposalHard},
		{in: " SOFT ", want: model.DisposalSoft},
		{in: "", want: model.DisposalSoft},
		{in: "shred", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_Resolve(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r, err := Policy{PolicyID: "RET-1", Years: 5, Mode: "hard"}.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, model.Retention{PolicyID: "RET-1", DeleteAt: time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC), Mode: model.DisposalHard}, r)

	_, err = Policy{PolicyID: " ", Years: 1}.Resolve(now)
	assert.ErrorIs(t, err, ErrPolicyIDRequired)

	_, err = Policy{PolicyID: "RET-1", Years: -1}.Resolve(now)
	assert.ErrorIs(t, err, ErrNegativeYears)

	_, err = Policy{PolicyID: "RET-1", Years: 1, Mode: "archive"}.Resolve(now)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestGuard(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	until := time.Date(2031, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, Guard(nil, now))
	assert.NoError(t, Guard(&model.Retention{DeleteAt: now}, now))
	assert.NoError(t, Guard(&model.Retention{DeleteAt: now.Add(-time.Second)}, now))

	err := Guard(&model.Retention{DeleteAt: until}, now)
	var lockErr *LockError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, until, lockErr.Until)
	assert.Contains(t, err.Error(), "2031-05-01")
}

func TestActionFor(t *testing.T) {
	action, hard := ActionFor(model.DisposalHard)
	assert.Equal(t, model.ActionHardDeleteExpiration, action)
	assert.True(t, hard)

	action, hard = ActionFor(model.DisposalSoft)
	assert.Equal(t, model.ActionSoftDeleteExpiration, action)
	assert.False(t, hard)

	action, hard = ActionFor("")
	assert.Equal(t, model.ActionSoftDeleteExpiration, action)
	assert.False(t, hard)
}

func TestStateOf(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deleted := now.Add(-time.Hour)

	assert.Equal(t, StateActive, StateOf(&model.Document{}, now))
	assert.Equal(t, StatePendingExpiry, StateOf(&model.Document{Retention: &model.Retention{DeleteAt: now.Add(time.Hour)}}, now))
	assert.Equal(t, StateExpired, StateOf(&model.Document{Retention: &model.Retention{DeleteAt: now}}, now))
	assert.Equal(t, StateDisposed, StateOf(&model.Document{DeletedAt: &deleted}, now))
}
