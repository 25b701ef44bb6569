package session

import (
	"testing"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func rec(number string, offset time.Duration) types.CallStageRecord {
	return types.CallStageRecord{Number: number, Timestamp: baseTime.Add(offset)}
}

func recStage(number string, offset time.Duration, stage int) types.CallStageRecord {
	r := rec(number, offset)
	r.Stage = &stage
	return r
}

func recCall(number string, offset time.Duration, callID int64) types.CallStageRecord {
	r := rec(number, offset)
	r.CallID = &callID
	return r
}

func TestGroupByWindow(t *testing.T) {
	window := 2 * time.Minute

	tests := []struct {
		name    string
		records []types.CallStageRecord
		want    [][]string // numbers per session, in order
	}{
		{
			name: "single number within window",
			records: []types.CallStageRecord{
				rec("100", 0),
				rec("100", time.Minute),
			},
			want: [][]string{{"100", "100"}},
		},
		{
			name: "gap beyond window splits",
			records: []types.CallStageRecord{
				rec("100", 0),
				rec("100", 5*time.Minute),
			},
			want: [][]string{{"100"}, {"100"}},
		},
		{
			name: "gap exactly at window joins",
			records: []types.CallStageRecord{
				rec("100", 0),
				rec("100", 2*time.Minute),
			},
			want: [][]string{{"100", "100"}},
		},
		{
			name: "number change splits even within window",
			records: []types.CallStageRecord{
				rec("100", 0),
				rec("200", 30*time.Second),
			},
			want: [][]string{{"100"}, {"200"}},
		},
		{
			name: "interleaved numbers are sorted apart",
			records: []types.CallStageRecord{
				rec("200", 0),
				rec("100", 10*time.Second),
				rec("200", 20*time.Second),
				rec("100", 30*time.Second),
			},
			want: [][]string{{"100", "100"}, {"200", "200"}},
		},
		{
			name:    "empty input",
			records: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := GroupByWindow(tt.records, window)
			if len(sessions) != len(tt.want) {
				t.Fatalf("expected %d sessions, got %d", len(tt.want), len(sessions))
			}
			for i, numbers := range tt.want {
				if len(sessions[i]) != len(numbers) {
					t.Fatalf("session %d: expected %d records, got %d", i, len(numbers), len(sessions[i]))
				}
				for j, number := range numbers {
					if sessions[i][j].Number != number {
						t.Errorf("session %d record %d: expected number %s, got %s", i, j, number, sessions[i][j].Number)
					}
				}
			}
		})
	}
}

func TestGroupByWindowChainedStages(t *testing.T) {
	// Each stage is within the window of the previous one even though the
	// first and last are further apart: the chain stays one session.
	records := []types.CallStageRecord{
		rec("100", 0),
		rec("100", 90*time.Second),
		rec("100", 3*time.Minute),
	}

	sessions := GroupByWindow(records, 2*time.Minute)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if len(sessions[0]) != 3 {
		t.Errorf("expected 3 records in session, got %d", len(sessions[0]))
	}
}

func TestGroupByWindowDoesNotMutateInput(t *testing.T) {
	records := []types.CallStageRecord{
		rec("300", 0),
		rec("100", time.Second),
	}

	GroupByWindow(records, time.Minute)

	if records[0].Number != "300" || records[1].Number != "100" {
		t.Error("input slice was reordered")
	}
}

func TestGroupByCallID(t *testing.T) {
	records := []types.CallStageRecord{
		recCall("100", 0, 7),
		rec("200", time.Second),
		recCall("100", 2*time.Second, 7),
		recCall("300", 3*time.Second, 9),
		rec("400", 4*time.Second),
	}

	groups, ungrouped := GroupByCallID(records)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].CallID != 7 || len(groups[0].Stages) != 2 {
		t.Errorf("group 0: expected call id 7 with 2 stages, got id %d with %d", groups[0].CallID, len(groups[0].Stages))
	}
	if groups[1].CallID != 9 || len(groups[1].Stages) != 1 {
		t.Errorf("group 1: expected call id 9 with 1 stage, got id %d with %d", groups[1].CallID, len(groups[1].Stages))
	}
	if len(ungrouped) != 2 {
		t.Fatalf("expected 2 ungrouped records, got %d", len(ungrouped))
	}
	if ungrouped[0].Number != "200" || ungrouped[1].Number != "400" {
		t.Errorf("ungrouped records out of order: %s, %s", ungrouped[0].Number, ungrouped[1].Number)
	}
}

func TestSessionsByCallIDPartitionsEveryRecord(t *testing.T) {
	records := []types.CallStageRecord{
		recCall("100", 0, 1),
		rec("200", time.Second),
		recCall("100", 2*time.Second, 1),
	}

	sessions := SessionsByCallID(records)

	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	// Grouped sessions come first, nil-id singletons after.
	if len(sessions[0]) != 2 {
		t.Errorf("expected call-id session with 2 records, got %d", len(sessions[0]))
	}
	if len(sessions[1]) != 1 || sessions[1][0].Number != "200" {
		t.Errorf("expected singleton session for 200")
	}

	total := 0
	for _, s := range sessions {
		total += len(s)
	}
	if total != len(records) {
		t.Errorf("sessions cover %d records, input had %d", total, len(records))
	}
}

func TestLatestStagePerNumber(t *testing.T) {
	records := []types.CallStageRecord{
		recStage("100", 0, 1),
		recStage("200", time.Second, 2),
		recStage("100", 2*time.Second, 3),
		rec("300", 3*time.Second), // nil stage
	}

	finals := LatestStagePerNumber(records)

	if len(finals) != 3 {
		t.Fatalf("expected 3 finals, got %d", len(finals))
	}
	// First-appearance order of numbers.
	if finals[0].Number != "100" || finals[0].StageNumber() != 3 {
		t.Errorf("expected 100 at stage 3, got %s at %d", finals[0].Number, finals[0].StageNumber())
	}
	if finals[1].Number != "200" || finals[1].StageNumber() != 2 {
		t.Errorf("expected 200 at stage 2, got %s at %d", finals[1].Number, finals[1].StageNumber())
	}
	if finals[2].Number != "300" || finals[2].StageNumber() != 0 {
		t.Errorf("expected 300 at stage 0, got %s at %d", finals[2].Number, finals[2].StageNumber())
	}
}

func TestLatestStagePerNumberTieKeepsLastEncountered(t *testing.T) {
	first := recStage("100", 0, 2)
	first.ID = 1
	second := recStage("100", time.Minute, 2)
	second.ID = 2

	finals := LatestStagePerNumber([]types.CallStageRecord{first, second})

	if len(finals) != 1 {
		t.Fatalf("expected 1 final, got %d", len(finals))
	}
	if finals[0].ID != 2 {
		t.Errorf("expected the later record to win the tie, got id %d", finals[0].ID)
	}
}
