package observability

import (
	"testing"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := NewLatencyWindow(8)
	for _, ms := range []float64{100, 200, 300, 400} {
		w.Observe(StageOraclePlan, ms)
	}
	w.ObserveIndicator("assign_assigned")
	w.ObserveIndicator("assign_assigned")
	w.ObserveIndicator("assign_empty_plan")

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %d, want 1", len(snap.Stages))
	}
	stage := snap.Stages[0]
	if stage.Stage != StageOraclePlan {
		t.Fatalf("stage = %q, want %q", stage.Stage, StageOraclePlan)
	}
	if stage.Samples != 4 {
		t.Fatalf("samples = %d, want 4", stage.Samples)
	}
	if stage.LastMS != 400 {
		t.Fatalf("last = %v, want 400", stage.LastMS)
	}
	if stage.AvgMS != 250 {
		t.Fatalf("avg = %v, want 250", stage.AvgMS)
	}
	if stage.P50MS != 250 {
		t.Fatalf("p50 = %v, want 250", stage.P50MS)
	}
	if len(snap.Indicators) != 2 {
		t.Fatalf("indicators = %d, want 2", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "assign_assigned" || snap.Indicators[0].Count != 2 {
		t.Fatalf("indicator[0] = %+v, want assign_assigned x2", snap.Indicators[0])
	}
}

func TestLatencyWindowWrapsAtCapacity(t *testing.T) {
	w := NewLatencyWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StageAssignCommit, float64(i))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %d, want 1", len(snap.Stages))
	}
	if got := snap.Stages[0].Samples; got != 4 {
		t.Fatalf("samples = %d, want 4 (window cap)", got)
	}
	if got := snap.Stages[0].LastMS; got != 9 {
		t.Fatalf("last = %v, want 9", got)
	}
}

func TestLatencyWindowIgnoresBadInput(t *testing.T) {
	w := NewLatencyWindow(4)
	w.Observe("", 10)
	w.Observe(StageReconnect, -1)
	w.ObserveIndicator("  ")
	snap := w.Snapshot()
	if len(snap.Stages) != 0 || len(snap.Indicators) != 0 {
		t.Fatalf("snapshot not empty: %+v", snap)
	}

	var nilWindow *LatencyWindow
	nilWindow.Observe(StageReconnect, 5)
	nilWindow.ObserveIndicator("x")
	if got := nilWindow.Snapshot(); len(got.Stages) != 0 {
		t.Fatalf("nil window snapshot not empty")
	}
}
