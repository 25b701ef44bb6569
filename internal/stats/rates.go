package stats

import "math"

// round2 rounds to two decimal places, the precision every rate in the API
// carries.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TransferRate is the percentage of transferred calls over total calls.
// A zero total yields 0.0, never an error.
func TransferRate(transferred, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return round2(float64(transferred) / float64(total) * 100)
}

// QualifiedRate is the percentage of qualified calls over transferred calls:
// of the calls we transferred, how many were qualified. A zero transferred
// count yields 0.0.
func QualifiedRate(qualified, transferred int) float64 {
	if transferred == 0 {
		return 0.0
	}
	return round2(float64(qualified) / float64(transferred) * 100)
}

// NullVoiceRatio is the percentage of sessions whose final stage has no
// voice assigned, over all sessions. A zero session count yields 0.0.
func NullVoiceRatio(nullCount, totalSessions int) float64 {
	if totalSessions == 0 {
		return 0.0
	}
	return round2(float64(nullCount) / float64(totalSessions) * 100)
}
