package calculator

import (
	"slices"
	"sync"
)

const subscriberBuffer = 16

// Tracker receives states from the model, keeps the history of the
// computation, and passes each new representation to the renderer and to
// subscribers. Repeated identical states are dropped.
type Tracker struct {
	mu          sync.Mutex
	renderer    Renderer
	previous    *State
	current     []State
	completed   [][]State
	subscribers map[int]chan Representation
	nextID      int
}

// NewTracker returns a Tracker that renders through r, which may be nil.
// r is called with the Tracker locked and must not call back into it.
func NewTracker(r Renderer) *Tracker {
	return &Tracker{
		renderer:    r,
		subscribers: make(map[int]chan Representation),
	}
}

// Transition records data. A state whose Last is equals closes the current
// computation and moves it to the completed list.
func (t *Tracker) Transition(data State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.previous != nil && t.previous.Equal(data) {
		return
	}

	snapshot := data.Clone()
	t.previous = &snapshot

	t.current = append(t.current, snapshot)
	if snapshot.Last == lastEquals {
		t.completed = append(t.completed, t.current)
		t.current = nil
	}

	rep := Represent(snapshot)
	if t.renderer != nil {
		t.renderer.Render(rep)
	}

	for _, ch := range t.subscribers {
		// Slow subscribers miss intermediate states rather than block the model.
		select {
		case ch <- rep:
		default:
		}
	}
}

// History returns copies of the current and completed computations.
func (t *Tracker) History() History {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := History{
		Current:   cloneStates(t.current),
		Completed: make([][]State, 0, len(t.completed)),
	}
	for _, states := range t.completed {
		h.Completed = append(h.Completed, cloneStates(states))
	}
	return h
}

// Subscribe returns a channel of representations and a function that
// unsubscribes and closes it.
func (t *Tracker) Subscribe() (<-chan Representation, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++

	ch := make(chan Representation, subscriberBuffer)
	t.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subscribers, id)
			close(ch)
		})
	}
}

func cloneStates(states []State) []State {
	out := slices.Clone(states)
	if out == nil {
		return []State{}
	}
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}
