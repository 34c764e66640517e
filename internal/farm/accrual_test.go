package farm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

func TestAccruedExactForWholeSeconds(t *testing.T) {
	// 1000 staked at 0.0001/s for one day earns exactly 8640
	rate := decimal.RequireFromString("0.0001")
	staked := decimal.NewFromInt(1000)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	earned := Accrued(staked, rate, start, start.Add(86_400*time.Second))
	assert.True(t, earned.Equal(decimal.NewFromInt(8640)), "got %s", earned)
}

func TestAccruedFractionalSeconds(t *testing.T) {
	rate := decimal.NewFromInt(2)
	staked := decimal.NewFromInt(10)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 2 × 10 × 0.5s = 10
	earned := Accrued(staked, rate, start, start.Add(500*time.Millisecond))
	assert.True(t, earned.Equal(decimal.NewFromInt(10)), "got %s", earned)
}

func TestAccruedZeroOrNegativeElapsed(t *testing.T) {
	rate := decimal.NewFromInt(1)
	staked := decimal.NewFromInt(100)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Accrued(staked, rate, now, now).IsZero())
	// clock skew never produces negative rewards
	assert.True(t, Accrued(staked, rate, now, now.Add(-time.Minute)).IsZero())
}

func TestTotalAccruedAddsAccumulated(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	farm := &models.Farm{RewardRate: decimal.RequireFromString("0.0001")}
	position := &models.Position{
		StakedAmount:       decimal.NewFromInt(1000),
		LastHarvestAt:      start,
		AccumulatedRewards: decimal.NewFromInt(100),
	}

	total := TotalAccrued(farm, position, start.Add(86_400*time.Second))
	assert.True(t, total.Equal(decimal.NewFromInt(8740)), "got %s", total)

	assert.True(t, TotalAccrued(farm, nil, start).IsZero())
}

func TestEstimateAPY(t *testing.T) {
	// 0.0001/s annualizes to 315360%
	apy := EstimateAPY(decimal.RequireFromString("0.0001"))
	assert.True(t, apy.Equal(decimal.NewFromInt(315_360)), "got %s", apy)

	// a huge rate is capped at the ceiling
	apy = EstimateAPY(decimal.NewFromInt(1))
	assert.True(t, apy.Equal(MaxAPYPercent))
}

func TestPoolAPYZeroWhenNothingStaked(t *testing.T) {
	apy := PoolAPY(decimal.RequireFromString("0.0001"), decimal.Zero)
	assert.True(t, apy.IsZero())
}

func TestPoolAPYMatchesRateOnlyEstimate(t *testing.T) {
	// the staked term cancels, so any non-zero TVL yields the rate-only APY
	rate := decimal.RequireFromString("0.0001")
	expected := EstimateAPY(rate)

	for _, staked := range []int64{1, 1000, 123_456_789} {
		apy := PoolAPY(rate, decimal.NewFromInt(staked))
		assert.True(t, apy.Equal(expected), "staked %d: got %s want %s", staked, apy, expected)
	}
}

func TestPoolAPYCapped(t *testing.T) {
	apy := PoolAPY(decimal.NewFromInt(1), decimal.NewFromInt(500))
	assert.True(t, apy.Equal(MaxAPYPercent))
}
