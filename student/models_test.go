package student

import "testing"

func names(students []*Student) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.Name
	}
	return out
}

func TestSortByTotal(t *testing.T) {
	build := func() []*Student {
		return []*Student{
			{Name: "Cara", TotalMinutes: 10},
			{Name: "Abe", TotalMinutes: 50},
			{Name: "Bea", TotalMinutes: 10},
			{Name: "Dan", TotalMinutes: -5},
		}
	}

	tests := []struct {
		order Order
		want  []string
	}{
		{OrderDesc, []string{"Abe", "Bea", "Cara", "Dan"}},
		{OrderAsc, []string{"Dan", "Bea", "Cara", "Abe"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			s := build()
			SortByTotal(s, tt.order)
			got := names(s)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	if ParseOrder("asc") != OrderAsc {
		t.Error("expected asc")
	}
	for _, in := range []string{"", "desc", "bogus"} {
		if ParseOrder(in) != OrderDesc {
			t.Errorf("ParseOrder(%q) should default to desc", in)
		}
	}
}

func TestStanding(t *testing.T) {
	s := &Student{TotalMinutes: 50}
	st := s.Standing()
	if st.Owed != 1 || st.Progress != 5 {
		t.Errorf("unexpected standing: %+v", st)
	}
}
