package calculator

import (
	"testing"
	"time"
)

func TestTrackerRecordsComputations(t *testing.T) {
	var rendered []Representation
	tracker := NewTracker(RendererFunc(func(rep Representation) { rendered = append(rendered, rep) }))
	m := NewModel(tracker)

	for _, p := range seq(digits("2"), plus, digits("3"), eq, digits("4")) {
		m.Propose(p)
	}

	h := tracker.History()
	if len(h.Completed) != 1 {
		t.Fatalf("expected 1 completed computation, got %d", len(h.Completed))
	}
	if got := len(h.Completed[0]); got != 4 {
		t.Fatalf("expected 4 states in the completed computation, got %d", got)
	}
	if out := h.Completed[0][3].Output; out != "5" {
		t.Fatalf("expected completed output %q, got %q", "5", out)
	}
	if len(h.Current) != 1 || h.Current[0].Output != "4" {
		t.Fatalf("expected current computation [4], got %+v", h.Current)
	}

	if len(rendered) != 5 {
		t.Fatalf("expected 5 renders, got %d", len(rendered))
	}
	if last := rendered[len(rendered)-1]; last.Output != "4" || last.Expression != "4 =" {
		t.Fatalf("unexpected last render %+v", last)
	}
}

func TestTrackerDropsRepeatedStates(t *testing.T) {
	tracker := NewTracker(nil)

	s := Baseline()
	s.Output = "7"
	tracker.Transition(s)
	tracker.Transition(s.Clone())

	if got := len(tracker.History().Current); got != 1 {
		t.Fatalf("expected 1 recorded state, got %d", got)
	}
}

func TestTrackerHistoryIsACopy(t *testing.T) {
	tracker := NewTracker(nil)
	s := Baseline()
	s.Expression = []string{"7", "+"}
	tracker.Transition(s)

	h := tracker.History()
	h.Current[0].Expression[0] = "changed"

	if got := tracker.History().Current[0].Expression[0]; got != "7" {
		t.Fatalf("expected history to be unaffected, got %q", got)
	}

	if empty := NewTracker(nil).History(); empty.Current == nil || empty.Completed == nil {
		t.Fatal("expected empty history slices to be non-nil")
	}
}

func TestTrackerSubscribe(t *testing.T) {
	tracker := NewTracker(nil)
	updates, cancel := tracker.Subscribe()

	s := Baseline()
	s.Output = "1234"
	tracker.Transition(s)

	select {
	case rep := <-updates:
		if rep.Output != "1,234" {
			t.Fatalf("expected output %q, got %q", "1,234", rep.Output)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}

	cancel()
	cancel()

	if _, ok := <-updates; ok {
		t.Fatal("expected channel to be closed after cancel")
	}

	// No panic sending after unsubscribe.
	s.Output = "5"
	tracker.Transition(s)
}

func TestTrackerDoesNotBlockOnSlowSubscriber(t *testing.T) {
	tracker := NewTracker(nil)
	_, cancel := tracker.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s := Baseline()
		for i := 0; i < subscriberBuffer*4; i++ {
			s.Output = string(rune('1' + i%9))
			s.Last = s.Output
			s.Operands[0] = s.Output
			s.Expression = []string{s.Output, string(rune('a' + i%26))}
			tracker.Transition(s)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("transitions blocked on a subscriber that never reads")
	}
}
