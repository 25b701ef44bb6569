package session

import (
	"sort"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

// Resolved is the derived summary of one session.
type Resolved struct {
	// FinalStage is the record with the maximum stage number (nil stage
	// sorts as 0). When several records tie at the maximum, the one that
	// appears last in input order wins (stable sort).
	FinalStage     types.CallStageRecord
	FirstTimestamp time.Time
	LastTimestamp  time.Time
	TotalStages    int
	// Stages is the session sorted ascending by stage number, nil stages
	// first.
	Stages Session
}

// Resolve summarizes a session: stage-sorted record list, final stage, and
// the session's time span. First/last timestamps are computed independently
// of stage order, since stage order and timestamp order can diverge.
// Returns ok=false for an empty session.
func Resolve(s Session) (Resolved, bool) {
	if len(s) == 0 {
		return Resolved{}, false
	}

	stages := make(Session, len(s))
	copy(stages, s)
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].StageNumber() < stages[j].StageNumber()
	})

	first, last := s[0].Timestamp, s[0].Timestamp
	for _, rec := range s[1:] {
		if rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
	}

	return Resolved{
		FinalStage:     stages[len(stages)-1],
		FirstTimestamp: first,
		LastTimestamp:  last,
		TotalStages:    len(stages),
		Stages:         stages,
	}, true
}

// ResolveAll resolves every session, skipping empty ones.
func ResolveAll(sessions []Session) []Resolved {
	resolved := make([]Resolved, 0, len(sessions))
	for _, s := range sessions {
		if r, ok := Resolve(s); ok {
			resolved = append(resolved, r)
		}
	}
	return resolved
}

// FinalStages returns the final stage of every session, skipping empty ones.
func FinalStages(sessions []Session) []types.CallStageRecord {
	finals := make([]types.CallStageRecord, 0, len(sessions))
	for _, s := range sessions {
		if r, ok := Resolve(s); ok {
			finals = append(finals, r.FinalStage)
		}
	}
	return finals
}
