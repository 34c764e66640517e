package farm

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// Reward accrual. Pure functions of their inputs; every side-effecting
// write (accumulated rewards, pool counters) happens in the calling
// operation or in the background sweep.

// Accrued returns the reward earned by stakedAmount at rate between
// lastHarvest and now: elapsedSeconds × rate × stakedAmount. Elapsed time
// is converted at nanosecond precision so whole-second windows accrue
// decimal-exact amounts.
func Accrued(stakedAmount, rate decimal.Decimal, lastHarvest, now time.Time) decimal.Decimal {
	if !now.After(lastHarvest) {
		return decimal.Zero
	}
	elapsed := decimal.New(now.Sub(lastHarvest).Nanoseconds(), -9)
	return elapsed.Mul(rate).Mul(stakedAmount)
}

// PositionAccrued returns the reward a position has newly earned since its
// last harvest.
func PositionAccrued(farm *models.Farm, position *models.Position, now time.Time) decimal.Decimal {
	if farm == nil || position == nil {
		return decimal.Zero
	}
	return Accrued(position.StakedAmount, farm.RewardRate, position.LastHarvestAt, now)
}

// TotalAccrued returns a position's full harvestable amount at now:
// previously accumulated rewards plus the newly accrued increment.
func TotalAccrued(farm *models.Farm, position *models.Position, now time.Time) decimal.Decimal {
	if position == nil {
		return decimal.Zero
	}
	return position.AccumulatedRewards.Add(PositionAccrued(farm, position, now))
}

// EstimateAPY returns the rate-only annualized percentage yield:
// rate × 86400 × 365 × 100, capped at the APY ceiling.
func EstimateAPY(rate decimal.Decimal) decimal.Decimal {
	apy := rate.Mul(annualizer)
	if apy.GreaterThan(MaxAPYPercent) {
		return MaxAPYPercent
	}
	return apy
}

// PoolAPY returns the TVL-aware APY: zero when nothing is staked,
// otherwise annual rewards over total staked, as a percentage. The staked
// term cancels algebraically, collapsing to the rate-only figure; the
// shape is kept as-is pending product clarification.
func PoolAPY(rate, totalStaked decimal.Decimal) decimal.Decimal {
	if totalStaked.IsZero() {
		return decimal.Zero
	}
	annualRewards := rate.Mul(totalStaked).Mul(decimal.NewFromInt(secondsPerDay * daysPerYear))
	apy := annualRewards.Div(totalStaked).Mul(decimal.NewFromInt(100))
	if apy.GreaterThan(MaxAPYPercent) {
		return MaxAPYPercent
	}
	return apy
}
