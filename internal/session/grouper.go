// Package session reconstructs logical call sessions from raw call-stage
// records. Three grouping strategies exist because different endpoints depend
// on different session semantics; they are deliberately not unified:
//
//   - GroupByWindow: stages for the same number close together in time
//   - GroupByCallID: stages sharing an explicit platform-assigned call id
//   - LatestStagePerNumber: one representative record per distinct number
package session

import (
	"sort"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

// Session is an ordered collection of call-stage records that belong to the
// same logical call attempt. Sessions are built per request and never
// mutated after construction.
type Session []types.CallStageRecord

// GroupByWindow partitions records into sessions by number and timestamp
// proximity: after sorting by (number, timestamp) ascending, a record joins
// the current session when it has the same number as the previous record and
// its timestamp is within window of it (inclusive). Sessions are returned in
// the order they were opened.
//
// Two genuinely distinct calls to the same number inside the window will be
// merged; that is a known property of this strategy, not a defect.
func GroupByWindow(records []types.CallStageRecord, window time.Duration) []Session {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]types.CallStageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Number != sorted[j].Number {
			return sorted[i].Number < sorted[j].Number
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var sessions []Session
	current := Session{sorted[0]}

	for _, rec := range sorted[1:] {
		last := current[len(current)-1]
		sameNumber := rec.Number == last.Number
		withinWindow := rec.Timestamp.Sub(last.Timestamp) <= window

		if sameNumber && withinWindow {
			current = append(current, rec)
		} else {
			sessions = append(sessions, current)
			current = Session{rec}
		}
	}

	return append(sessions, current)
}

// CallGroup is one explicit call session: all records sharing a CallID, in
// input order.
type CallGroup struct {
	CallID int64
	Stages Session
}

// GroupByCallID partitions records that carry an explicit call id into
// groups, preserving first-seen order of call ids and input order within each
// group. Records without a call id are returned separately; callers treat
// each of them as a one-record session appended after the grouped sessions.
func GroupByCallID(records []types.CallStageRecord) ([]CallGroup, []types.CallStageRecord) {
	var (
		groups    []CallGroup
		ungrouped []types.CallStageRecord
		index     = make(map[int64]int)
	)

	for _, rec := range records {
		if rec.CallID == nil {
			ungrouped = append(ungrouped, rec)
			continue
		}
		id := *rec.CallID
		if i, ok := index[id]; ok {
			groups[i].Stages = append(groups[i].Stages, rec)
			continue
		}
		index[id] = len(groups)
		groups = append(groups, CallGroup{CallID: id, Stages: Session{rec}})
	}

	return groups, ungrouped
}

// SessionsByCallID reconstructs sessions from explicit call ids: one session
// per call id in first-seen order, followed by singleton sessions for every
// record that has no call id. The union of all session members equals the
// input set.
func SessionsByCallID(records []types.CallStageRecord) []Session {
	groups, ungrouped := GroupByCallID(records)

	sessions := make([]Session, 0, len(groups)+len(ungrouped))
	for _, g := range groups {
		sessions = append(sessions, g.Stages)
	}
	for _, rec := range ungrouped {
		sessions = append(sessions, Session{rec})
	}
	return sessions
}

// LatestStagePerNumber keeps, for each distinct number, only the record with
// the highest stage number (nil stage counts as 0; ties resolve to the record
// encountered last). Intermediate stages are discarded entirely — this is the
// degenerate strategy used where per-stage detail is not needed. Output is
// ordered by first appearance of each number in the input.
func LatestStagePerNumber(records []types.CallStageRecord) []types.CallStageRecord {
	var (
		finals []types.CallStageRecord
		index  = make(map[string]int)
	)

	for _, rec := range records {
		i, ok := index[rec.Number]
		if !ok {
			index[rec.Number] = len(finals)
			finals = append(finals, rec)
			continue
		}
		if rec.StageNumber() >= finals[i].StageNumber() {
			finals[i] = rec
		}
	}

	return finals
}
