package domain

// OutcomeStats counts observed successes and failures for one account.
// Both counters are monotonically non-decreasing.
type OutcomeStats struct {
	SuccessCount uint64
	FailureCount uint64
}

// PaymentStats tracks payment timeliness for one account.
// CumulativeDelaySeconds accumulates unconditionally, including on-time
// payments where the delay is expected to be zero.
type PaymentStats struct {
	OnTimeCount            uint64
	TotalCount             uint64
	CumulativeDelaySeconds uint64
}
