package temporal

import (
	"reflect"
	"testing"
)

func TestAssignErrors(t *testing.T) {
	d := NewDesigner()
	if _, err := d.Assign(0, InMediasRes); err == nil {
		t.Error("expected error for zero scenes")
	}
	if _, err := d.Assign(5, Technique("time_loop")); err == nil {
		t.Error("expected error for unknown technique")
	}
}

func TestAssignInMediasRes(t *testing.T) {
	a, err := NewDesigner().Assign(6, InMediasRes)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3, 0, 4, 5}
	if !reflect.DeepEqual(a.Chronology, want) {
		t.Fatalf("Chronology = %v, want %v", a.Chronology, want)
	}
	rank, err := a.ChronologicalRank(0)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 3 {
		t.Errorf("opening scene rank = %d, want 3", rank)
	}
}

func TestAssignParallelTimelines(t *testing.T) {
	a, err := NewDesigner().Assign(6, ParallelTimelines)
	if err != nil {
		t.Fatal(err)
	}
	// Two strands interleave: strand A at whole steps, strand B half a
	// step behind, so presentation and chronology coincide while the
	// strands overlap in time.
	wantTimes := []float64{0, 0.5, 1, 1.5, 2, 2.5}
	if !reflect.DeepEqual(a.Times, wantTimes) {
		t.Fatalf("Times = %v, want %v", a.Times, wantTimes)
	}
	if !reflect.DeepEqual(a.Chronology, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("Chronology = %v", a.Chronology)
	}
}

func TestAssignNestedFlashback(t *testing.T) {
	a, err := NewDesigner().Assign(6, NestedFlashback)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 3, 0, 1, 4, 5}
	if !reflect.DeepEqual(a.Chronology, want) {
		t.Fatalf("Chronology = %v, want %v", a.Chronology, want)
	}
}

func TestAssignNestedFlashbackRecurses(t *testing.T) {
	a, err := NewDesigner().Assign(9, NestedFlashback)
	if err != nil {
		t.Fatal(err)
	}
	// The middle third [3,6) becomes a flashback, and its own middle
	// scene 4 nests a level deeper, landing earliest of all.
	if a.Chronology[0] != 4 {
		t.Fatalf("deepest flashback = scene %d, want 4 (chronology %v)", a.Chronology[0], a.Chronology)
	}
	want := []int{4, 3, 5, 0, 1, 2, 6, 7, 8}
	if !reflect.DeepEqual(a.Chronology, want) {
		t.Fatalf("Chronology = %v, want %v", a.Chronology, want)
	}
}

func TestAssignPropheticVision(t *testing.T) {
	a, err := NewDesigner().Assign(6, PropheticVision)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 3, 4, 5, 1}
	if !reflect.DeepEqual(a.Chronology, want) {
		t.Fatalf("Chronology = %v, want %v", a.Chronology, want)
	}
	rank, err := a.ChronologicalRank(1)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 5 {
		t.Errorf("vision scene rank = %d, want last", rank)
	}
}

func TestAssignSingleScene(t *testing.T) {
	for _, technique := range Techniques() {
		a, err := NewDesigner().Assign(1, technique)
		if err != nil {
			t.Fatalf("%s: %v", technique, err)
		}
		if !reflect.DeepEqual(a.Chronology, []int{0}) {
			t.Errorf("%s: Chronology = %v, want [0]", technique, a.Chronology)
		}
	}
}

func TestRoundTripReconstruction(t *testing.T) {
	for _, technique := range Techniques() {
		for _, n := range []int{2, 5, 9, 12} {
			a, err := NewDesigner().Assign(n, technique)
			if err != nil {
				t.Fatalf("%s/%d: %v", technique, n, err)
			}

			// Reorder scene IDs chronologically, then place each
			// back where Chronology says it was presented.
			chronological := make([]int, n)
			for rank, presIdx := range a.Chronology {
				chronological[rank] = presIdx
			}
			restored := make([]int, n)
			for rank, presIdx := range a.Chronology {
				restored[presIdx] = chronological[rank]
			}
			for i, got := range restored {
				if got != i {
					t.Fatalf("%s/%d: reconstruction lost scene %d (got %v)", technique, n, i, restored)
				}
			}

			// Ranks is the exact inverse of Chronology.
			ranks := a.Ranks()
			for presIdx, rank := range ranks {
				if a.Chronology[rank] != presIdx {
					t.Fatalf("%s/%d: Ranks not inverse at %d", technique, n, presIdx)
				}
			}
		}
	}
}

func TestAssignmentTrim(t *testing.T) {
	full, err := NewDesigner().Assign(6, InMediasRes)
	if err != nil {
		t.Fatal(err)
	}

	trimmed := full.Trim(2)
	// The kept scenes carry the times they were assigned in the full
	// structure, not the times a 2-scene assignment would produce.
	wantTimes := []float64{3.5, 1}
	if !reflect.DeepEqual(trimmed.Times, wantTimes) {
		t.Fatalf("Times = %v, want %v", trimmed.Times, wantTimes)
	}
	if !reflect.DeepEqual(trimmed.Chronology, []int{1, 0}) {
		t.Errorf("Chronology = %v, want [1 0]", trimmed.Chronology)
	}
	if trimmed.Technique != InMediasRes {
		t.Errorf("Technique = %v", trimmed.Technique)
	}

	// Trimming to the full length or beyond keeps the assignment as is.
	if got := full.Trim(6); !reflect.DeepEqual(got.Times, full.Times) {
		t.Errorf("Trim(len) changed Times: %v", got.Times)
	}
	if got := full.Trim(10); !reflect.DeepEqual(got.Chronology, full.Chronology) {
		t.Errorf("Trim(>len) changed Chronology: %v", got.Chronology)
	}
	if got := full.Trim(0); len(got.Times) != 0 || len(got.Chronology) != 0 {
		t.Errorf("Trim(0) = %+v, want empty mapping", got)
	}
}

func TestChronologicalRankOutOfRange(t *testing.T) {
	a, _ := NewDesigner().Assign(3, InMediasRes)
	if _, err := a.ChronologicalRank(7); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := a.ChronologicalRank(-1); err == nil {
		t.Error("expected error for negative index")
	}
}
