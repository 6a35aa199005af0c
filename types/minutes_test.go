package types

import "testing"

func TestOwedCountAndProgress(t *testing.T) {
	tests := []struct {
		total    int64
		owed     int64
		progress int64
	}{
		{0, 0, 0},
		{5, 0, 5},
		{44, 0, 44},
		{45, 1, 0},
		{50, 1, 5},
		{90, 2, 0},
		{134, 2, 44},
		{-1, -1, 44},
		{-45, -1, 0},
		{-46, -2, 44},
	}

	for _, tt := range tests {
		if got := OwedCount(tt.total); got != tt.owed {
			t.Errorf("OwedCount(%d) = %d, want %d", tt.total, got, tt.owed)
		}
		if got := Progress(tt.total); got != tt.progress {
			t.Errorf("Progress(%d) = %d, want %d", tt.total, got, tt.progress)
		}
	}
}

func TestDecompositionLaw(t *testing.T) {
	for m := int64(-500); m <= 500; m++ {
		owed, progress := OwedCount(m), Progress(m)
		if owed*BlockMinutes+progress != m {
			t.Fatalf("owed*45+progress != total for %d: owed=%d progress=%d", m, owed, progress)
		}
		if progress < 0 || progress >= BlockMinutes {
			t.Fatalf("Progress(%d) = %d out of range", m, progress)
		}
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		total int64
		want  Level
	}{
		{-10, LevelLow},
		{0, LevelLow},
		{29, LevelLow},
		{30, LevelWarning},
		{44, LevelWarning},
		{45, LevelOwed},
		{200, LevelOwed},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.total); got != tt.want {
			t.Errorf("LevelFor(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}

func TestStandingFor(t *testing.T) {
	s := StandingFor(95)
	if s.TotalMinutes != 95 || s.Owed != 2 || s.Progress != 5 || s.Level != LevelOwed {
		t.Errorf("unexpected standing: %+v", s)
	}
}
