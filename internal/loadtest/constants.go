package loadtest

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ReadyWaitBudget      = 2 * time.Minute
	PercentageMultiplier = 100
)
