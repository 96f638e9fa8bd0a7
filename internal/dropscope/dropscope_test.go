package dropscope

import "testing"

func TestStack_PopReversesDeclarationOrder(t *testing.T) {
	s := New()
	s.Push()
	s.Track("a", "string", true)
	s.Track("b", "int", false)
	s.Track("c", "Box", true)

	entries := s.Pop()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"c", "b", "a"}
	for i, e := range entries {
		if e.Name != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, e.Name, want[i])
		}
	}
}

func TestStack_MarkBorrowedFindsOuterScope(t *testing.T) {
	s := New()
	s.Push()
	s.Track("x", "string", false)
	s.Push()
	s.MarkBorrowed("x")
	inner := s.Pop()
	if len(inner) != 0 {
		t.Fatalf("expected empty inner scope, got %d entries", len(inner))
	}
	outer := s.Pop()
	if len(outer) != 1 || !outer[0].IsBorrowed {
		t.Fatalf("expected x marked borrowed in outer scope, got %+v", outer)
	}
}

func TestPlanExit_DropsAndLifetimeEnds(t *testing.T) {
	entries := []Entry{
		{Name: "d", TypeName: "Box", NeedsDrop: true, IsBorrowed: true},
		{Name: "e", TypeName: "int", NeedsDrop: false, IsBorrowed: false},
	}
	actions := PlanExit(entries)
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if !actions[0].EmitDrop || !actions[0].EmitLifetimeEnd {
		t.Errorf("expected both drop and lifetime-end for d, got %+v", actions[0])
	}
	if actions[1].EmitDrop || actions[1].EmitLifetimeEnd {
		t.Errorf("expected no cleanup for e, got %+v", actions[1])
	}
}
