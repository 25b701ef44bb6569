package session

import (
	"testing"
	"time"
)

func TestResolveEmptySession(t *testing.T) {
	if _, ok := Resolve(nil); ok {
		t.Error("expected ok=false for empty session")
	}
}

func TestResolvePicksMaxStage(t *testing.T) {
	s := Session{
		recStage("100", 0, 1),
		recStage("100", time.Minute, 3),
		recStage("100", 2*time.Minute, 2),
	}

	res, ok := Resolve(s)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if res.FinalStage.StageNumber() != 3 {
		t.Errorf("expected final stage 3, got %d", res.FinalStage.StageNumber())
	}
	if res.TotalStages != 3 {
		t.Errorf("expected 3 total stages, got %d", res.TotalStages)
	}
	for i := 1; i < len(res.Stages); i++ {
		if res.Stages[i-1].StageNumber() > res.Stages[i].StageNumber() {
			t.Errorf("stages not sorted ascending at %d", i)
		}
	}
}

func TestResolveStageTieLastInInputOrderWins(t *testing.T) {
	first := recStage("100", 0, 2)
	first.ID = 1
	second := recStage("100", time.Minute, 2)
	second.ID = 2

	res, _ := Resolve(Session{first, second})
	if res.FinalStage.ID != 2 {
		t.Errorf("expected last tied record to win, got id %d", res.FinalStage.ID)
	}

	// Reversed input order flips the winner.
	res, _ = Resolve(Session{second, first})
	if res.FinalStage.ID != 1 {
		t.Errorf("expected last tied record to win after reorder, got id %d", res.FinalStage.ID)
	}
}

func TestResolveNilStageSortsFirst(t *testing.T) {
	s := Session{
		recStage("100", 0, 1),
		rec("100", time.Minute), // nil stage
	}

	res, _ := Resolve(s)
	if res.Stages[0].Stage != nil {
		t.Error("expected nil-stage record first in stage order")
	}
	if res.FinalStage.StageNumber() != 1 {
		t.Errorf("expected final stage 1, got %d", res.FinalStage.StageNumber())
	}
}

func TestResolveTimestampsIndependentOfStageOrder(t *testing.T) {
	// The highest stage happened first in time; the timestamps must still
	// span the whole session.
	s := Session{
		recStage("100", 0, 3),
		recStage("100", time.Minute, 1),
		recStage("100", 2*time.Minute, 2),
	}

	res, _ := Resolve(s)
	if !res.FirstTimestamp.Equal(baseTime) {
		t.Errorf("expected first timestamp %v, got %v", baseTime, res.FirstTimestamp)
	}
	want := baseTime.Add(2 * time.Minute)
	if !res.LastTimestamp.Equal(want) {
		t.Errorf("expected last timestamp %v, got %v", want, res.LastTimestamp)
	}
	if res.FinalStage.StageNumber() != 3 {
		t.Errorf("expected final stage 3, got %d", res.FinalStage.StageNumber())
	}
}

func TestResolveAllSkipsEmpty(t *testing.T) {
	resolved := ResolveAll([]Session{
		{rec("100", 0)},
		{},
		{rec("200", time.Second)},
	})
	if len(resolved) != 2 {
		t.Errorf("expected 2 resolved sessions, got %d", len(resolved))
	}
}

func TestFinalStages(t *testing.T) {
	sessions := []Session{
		{recStage("100", 0, 1), recStage("100", time.Minute, 2)},
		{rec("200", 0)},
	}

	finals := FinalStages(sessions)
	if len(finals) != 2 {
		t.Fatalf("expected 2 finals, got %d", len(finals))
	}
	if finals[0].StageNumber() != 2 {
		t.Errorf("expected final stage 2 for first session, got %d", finals[0].StageNumber())
	}
	if finals[1].Number != "200" {
		t.Errorf("expected number 200 for second session, got %s", finals[1].Number)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	s := Session{
		recStage("100", 0, 3),
		recStage("100", time.Minute, 1),
	}
	Resolve(s)

	if s[0].StageNumber() != 3 {
		t.Error("input session was reordered")
	}
}
