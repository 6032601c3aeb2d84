package math

// Maximum calculates the maximum value among two integers
func Maximum(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

//Minimum calculates the minimum value among two integers
func Minimum(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

//Adjustment contains rule of three for calculating an integer given another integer representing a percentage
func Adjustment(a int, b int) int {
	return (a * b / 100)
}

// ThroughputMbps converts a byte count over a wall-clock window into megabits
// per second. Zero or negative windows yield zero rather than an infinity.
func ThroughputMbps(bytes int64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(bytes) * 8 / 1e6 / seconds
}

// LossPct derives a loss percentage from sent/received byte counts
func LossPct(sent int64, received int64) float64 {
	if sent <= 0 {
		return 0
	}
	if received >= sent {
		return 0
	}
	return float64(sent-received) / float64(sent) * 100
}
