package grant

// PopMaxSkewSeconds bounds how stale an off-chain-signed proof may be when it
// reaches the engine.
const PopMaxSkewSeconds int64 = 600 // 10 minutes

// CurrentPeriodIndex computes the zero-based period index that is current at
// the supplied time. A period spans exact multiples of PeriodSeconds from
// StartTs; the index at a period's upper boundary second belongs to the next
// period, matching the truncating division of the original deployment.
func CurrentPeriodIndex(g *Grant, now int64) (uint64, error) {
	if g.ExpiresAt != 0 && now > g.ExpiresAt {
		return 0, ErrGrantExpired
	}
	if now < g.StartTs {
		return 0, ErrGrantNotStarted
	}
	elapsed, err := checkedSub(now, g.StartTs)
	if err != nil {
		return 0, err
	}
	if g.PeriodSeconds <= 0 {
		return 0, ErrInvalidPeriod
	}
	return uint64(elapsed / g.PeriodSeconds), nil
}

// checkTiming validates the caller-asserted period index against the index
// recomputed from the clock. Trusting the caller here would let a claimer
// pick any unclaimed index.
func checkTiming(g *Grant, now int64, periodIndex uint64) error {
	expected, err := CurrentPeriodIndex(g, now)
	if err != nil {
		return err
	}
	if periodIndex != expected {
		return ErrInvalidPeriodIndex
	}
	return nil
}

func checkedSub(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff >= a) || (b < 0 && diff <= a) {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

func absoluteDiff(a, b int64) (int64, error) {
	if a >= b {
		return checkedSub(a, b)
	}
	return checkedSub(b, a)
}
