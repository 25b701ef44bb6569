package stats

import (
	"sort"
	"time"

	"github.com/dialforge/campaign-api/internal/category"
	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/types"
)

// TransferMetrics grades session outcomes: A-grade transfers landed in the
// Qualified bucket, B-grade transfers did not, everything else dropped off.
type TransferMetrics struct {
	AGradeTransfers int `json:"aGradeTransfers"`
	BGradeTransfers int `json:"bGradeTransfers"`
	DropOffs        int `json:"dropOffs"`
	TotalCalls      int `json:"totalCalls"`
}

// ComputeTransferMetrics grades each final stage under the given mapping.
func ComputeTransferMetrics(finals []types.CallStageRecord, m category.Mapping) TransferMetrics {
	out := TransferMetrics{TotalCalls: len(finals)}
	for _, rec := range finals {
		display := m.Display(rec.Category())
		switch {
		case rec.Transferred && display == category.Qualified:
			out.AGradeTransfers++
		case rec.Transferred:
			out.BGradeTransfers++
		default:
			out.DropOffs++
		}
	}
	return out
}

// Interval is one time bucket of the category time series.
type Interval struct {
	Start      time.Time       `json:"intervalStart"`
	End        time.Time       `json:"intervalEnd"`
	Categories []CategoryCount `json:"categories"`
}

// CategoryTimeSeries buckets final stages into fixed-width intervals over
// [start, end) and counts per display category inside each bucket. Every
// interval reports the full set of mapped, non-excluded display categories
// (zero counts included) so consumers get a stable series shape. Final
// stages whose raw category is not in the mapping, or maps to the excluded
// sentinel, are skipped.
func CategoryTimeSeries(finals []types.CallStageRecord, m category.Mapping, start, end time.Time, width time.Duration) []Interval {
	if !start.Before(end) || width <= 0 {
		return nil
	}

	displays := m.Displays()

	var intervals []Interval
	for cur := start; cur.Before(end); {
		next := cur.Add(width)
		if next.After(end) {
			next = end
		}
		intervals = append(intervals, Interval{Start: cur, End: next})
		cur = next
	}

	counts := make([]map[string]*CategoryCount, len(intervals))
	for i := range counts {
		counts[i] = make(map[string]*CategoryCount, len(displays))
		for _, d := range displays {
			counts[i][d] = &CategoryCount{Name: d}
		}
	}

	for _, rec := range finals {
		raw := rec.Category()
		if !m.Known(raw) {
			continue
		}
		display := m.Display(raw)
		if display == category.Excluded {
			continue
		}
		for i, iv := range intervals {
			if !rec.Timestamp.Before(iv.Start) && rec.Timestamp.Before(iv.End) {
				c := counts[i][display]
				c.Count++
				if rec.Transferred {
					c.TransferredCount++
				}
				break
			}
		}
	}

	for i := range intervals {
		for _, d := range displays {
			intervals[i].Categories = append(intervals[i].Categories, *counts[i][d])
		}
	}
	return intervals
}

// StageCount is a per-stage tally within one display category.
type StageCount struct {
	Stage            int `json:"stage"`
	Count            int `json:"count"`
	TransferredCount int `json:"transferredCount"`
}

// CategoryStageCounts is one display category's per-stage breakdown over all
// stages of all sessions, not just finals.
type CategoryStageCounts struct {
	Name   string       `json:"name"`
	Stages []StageCount `json:"stages"`
}

// StageCategoryCounts tallies every stage of every session by display
// category and stage number. Output is sorted by category name, stages
// ascending, for deterministic responses.
func StageCategoryCounts(sessions []session.Session, m category.Mapping) []CategoryStageCounts {
	byCategory := make(map[string]map[int]*StageCount)

	for _, s := range sessions {
		for _, rec := range s {
			raw := rec.Category()
			if raw == "" {
				continue
			}
			display := m.Display(raw)
			if display == category.Excluded {
				continue
			}
			stages := byCategory[display]
			if stages == nil {
				stages = make(map[int]*StageCount)
				byCategory[display] = stages
			}
			sc := stages[rec.StageNumber()]
			if sc == nil {
				sc = &StageCount{Stage: rec.StageNumber()}
				stages[rec.StageNumber()] = sc
			}
			sc.Count++
			if rec.Transferred {
				sc.TransferredCount++
			}
		}
	}

	out := make([]CategoryStageCounts, 0, len(byCategory))
	for _, name := range sortedKeys(byCategory) {
		stages := byCategory[name]
		nums := make([]int, 0, len(stages))
		for n := range stages {
			nums = append(nums, n)
		}
		sort.Ints(nums)

		csc := CategoryStageCounts{Name: name}
		for _, n := range nums {
			csc.Stages = append(csc.Stages, *stages[n])
		}
		out = append(out, csc)
	}
	return out
}
