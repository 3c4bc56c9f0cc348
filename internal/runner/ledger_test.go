package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"option_bot/internal/models"
)

func TestApplySettlement_LossProgression(t *testing.T) {
	s := models.NewSession("1", models.SessionConfig{BaseAmount: 1.0})

	ApplySettlement(s, -1.0)
	assert.Equal(t, 2.2, s.CurrentAmount)
	assert.Equal(t, 1, s.ConsecutiveLosses)

	ApplySettlement(s, -2.2)
	assert.Equal(t, 4.84, s.CurrentAmount)
	assert.Equal(t, 2, s.ConsecutiveLosses)

	ApplySettlement(s, -4.84)
	assert.Equal(t, 10.65, s.CurrentAmount) // 4.84*2.2 = 10.648 → 10.65
	assert.Equal(t, 3, s.ConsecutiveLosses)
	assert.Equal(t, 3, s.TotalLosses)
}

func TestApplySettlement_WinResetsToBase(t *testing.T) {
	s := models.NewSession("1", models.SessionConfig{BaseAmount: 1.0})
	ApplySettlement(s, -1.0)
	ApplySettlement(s, -2.2)

	ApplySettlement(s, 3.5)
	assert.Equal(t, 1.0, s.CurrentAmount)
	assert.Equal(t, 0, s.ConsecutiveLosses)
	assert.Equal(t, 1, s.TotalWins)
	assert.Equal(t, 2, s.TotalLosses)
}

func TestApplySettlement_ZeroProfitChangesNothing(t *testing.T) {
	s := models.NewSession("1", models.SessionConfig{BaseAmount: 1.0})
	ApplySettlement(s, -1.0)

	ApplySettlement(s, 0)
	assert.Equal(t, 2.2, s.CurrentAmount)
	assert.Equal(t, 1, s.ConsecutiveLosses)
	assert.Equal(t, 1, s.TotalLosses)
	assert.Equal(t, 0, s.TotalWins)
}

func TestApplySettlement_NextStakeNeverBelowBase(t *testing.T) {
	s := models.NewSession("1", models.SessionConfig{BaseAmount: 2.0})
	s.CurrentAmount = 0.5

	ApplySettlement(s, -0.5)
	assert.Equal(t, 2.0, s.CurrentAmount)
}

func TestSubmitStake_FloorAndRounding(t *testing.T) {
	s := models.NewSession("1", models.SessionConfig{BaseAmount: 0.1})
	s.CurrentAmount = 0.1
	assert.Equal(t, 0.5, SubmitStake(s))

	s.CurrentAmount = 1.234
	assert.Equal(t, 1.23, SubmitStake(s))

	s.CurrentAmount = 1.236
	assert.Equal(t, 1.24, SubmitStake(s))
}
