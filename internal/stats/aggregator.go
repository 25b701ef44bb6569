// Package stats derives transfer, category, and voice statistics from
// resolved call sessions. All computation is pure and in-memory: callers
// hand it fully materialized record collections, it returns freshly built
// results with deterministic (sorted) ordering.
package stats

import (
	"sort"

	"github.com/dialforge/campaign-api/internal/category"
	"github.com/dialforge/campaign-api/internal/session"
	"github.com/dialforge/campaign-api/internal/types"
)

// CategoryCount is one display category's tally over session final stages.
type CategoryCount struct {
	Name             string `json:"name"`
	Color            string `json:"color"`
	Count            int    `json:"count"`
	TransferredCount int    `json:"transferredCount"`
}

// VoiceStats is one voice's transfer performance over voiced final stages.
type VoiceStats struct {
	VoiceName                    string  `json:"voiceName"`
	TotalCalls                   int     `json:"totalCalls"`
	TransferredCalls             int     `json:"transferredCalls"`
	TransferRate                 float64 `json:"transferRate"`
	NonTransferredCalls          int     `json:"nonTransferredCalls"`
	QualifiedTransferredCalls    int     `json:"qualifiedTransferredCalls"`
	QualifiedTransferRate        float64 `json:"qualifiedTransferRate"`
	NonQualifiedTransferredCalls int     `json:"nonQualifiedTransferredCalls"`
	NonQualifiedTransferRate     float64 `json:"nonQualifiedTransferRate"`
}

// AggregateStats is the statistics object computed over one set of resolved
// sessions. Voiceless sessions count toward TotalSessions and the null-voice
// bookkeeping but are excluded from every per-voice and per-category rate.
type AggregateStats struct {
	TotalSessions                int             `json:"totalSessions"`
	TotalCalls                   int             `json:"totalCalls"`
	TransferredCalls             int             `json:"transferredCalls"`
	TransferRate                 float64         `json:"transferRate"`
	NonTransferredCalls          int             `json:"nonTransferredCalls"`
	QualifiedTransferredCalls    int             `json:"qualifiedTransferredCalls"`
	QualifiedTransferRate        float64         `json:"qualifiedTransferRate"`
	NonQualifiedTransferredCalls int             `json:"nonQualifiedTransferredCalls"`
	NonQualifiedTransferRate     float64         `json:"nonQualifiedTransferRate"`
	NullVoiceCalls               int             `json:"nullVoiceCalls"`
	NullVoiceRatio               float64         `json:"nullVoiceRatio"`
	Categories                   []CategoryCount `json:"categories"`
	Voices                       []VoiceStats    `json:"voices"`
}

// Aggregate computes statistics over session final stages under the given
// mapping. Categories normalizing to the excluded sentinel are dropped from
// the category breakdown entirely; their sessions still count toward
// TotalSessions and null-voice bookkeeping.
func Aggregate(finals []types.CallStageRecord, m category.Mapping) AggregateStats {
	qualified := m.QualifiedLabels()

	type tally struct {
		total, transferred, qualified int
		color                         string
	}
	catTallies := make(map[string]*tally)
	voiceTallies := make(map[string]*tally)

	out := AggregateStats{TotalSessions: len(finals)}

	for _, rec := range finals {
		voice, voiced := rec.Voice()
		if !voiced {
			out.NullVoiceCalls++
			continue
		}

		out.TotalCalls++
		isQualified := rec.Transferred && qualified[rec.Category()]
		if rec.Transferred {
			out.TransferredCalls++
			if isQualified {
				out.QualifiedTransferredCalls++
			}
		}

		vt := voiceTallies[voice]
		if vt == nil {
			vt = &tally{}
			voiceTallies[voice] = vt
		}
		vt.total++
		if rec.Transferred {
			vt.transferred++
			if isQualified {
				vt.qualified++
			}
		}

		if raw := rec.Category(); raw != "" {
			display := m.Normalize(raw, rec.Transferred)
			if display == category.Excluded {
				continue
			}
			ct := catTallies[display]
			if ct == nil {
				ct = &tally{}
				if rec.CategoryColor != nil {
					ct.color = *rec.CategoryColor
				}
				catTallies[display] = ct
			}
			ct.total++
			if rec.Transferred {
				ct.transferred++
			}
		}
	}

	out.TransferRate = TransferRate(out.TransferredCalls, out.TotalCalls)
	out.NonTransferredCalls = out.TotalCalls - out.TransferredCalls
	out.QualifiedTransferRate = QualifiedRate(out.QualifiedTransferredCalls, out.TransferredCalls)
	out.NonQualifiedTransferredCalls = out.TransferredCalls - out.QualifiedTransferredCalls
	out.NonQualifiedTransferRate = QualifiedRate(out.NonQualifiedTransferredCalls, out.TransferredCalls)
	out.NullVoiceRatio = NullVoiceRatio(out.NullVoiceCalls, out.TotalSessions)

	for _, name := range sortedKeys(catTallies) {
		t := catTallies[name]
		out.Categories = append(out.Categories, CategoryCount{
			Name:             name,
			Color:            t.color,
			Count:            t.total,
			TransferredCount: t.transferred,
		})
	}
	for _, name := range sortedKeys(voiceTallies) {
		t := voiceTallies[name]
		nonQualified := t.transferred - t.qualified
		out.Voices = append(out.Voices, VoiceStats{
			VoiceName:                    name,
			TotalCalls:                   t.total,
			TransferredCalls:             t.transferred,
			TransferRate:                 TransferRate(t.transferred, t.total),
			NonTransferredCalls:          t.total - t.transferred,
			QualifiedTransferredCalls:    t.qualified,
			QualifiedTransferRate:        QualifiedRate(t.qualified, t.transferred),
			NonQualifiedTransferredCalls: nonQualified,
			NonQualifiedTransferRate:     QualifiedRate(nonQualified, t.transferred),
		})
	}

	return out
}

// AggregateSessions is Aggregate over already-resolved sessions.
func AggregateSessions(resolved []session.Resolved, m category.Mapping) AggregateStats {
	finals := make([]types.CallStageRecord, 0, len(resolved))
	for _, r := range resolved {
		finals = append(finals, r.FinalStage)
	}
	return Aggregate(finals, m)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
