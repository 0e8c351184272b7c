package session

import (
	"sync"

	"github.com/sportcenterhq/client-go/internal/models"
)

// Snapshot is one immutable view of the session, safe to hand to any reader.
type Snapshot struct {
	User     *models.Identity
	Role     models.UserRole
	LoggedIn bool
	Loading  bool
}

// State is the process-wide observable session. The Manager is the only
// writer; screens and services subscribe or poll Current. Publishes to a
// subscriber that stopped draining are dropped rather than blocking, so a
// late update after the consumer is gone is safely discarded.
type State struct {
	mu      sync.RWMutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextID  int
}

func NewState() *State {
	return &State{subs: make(map[int]chan Snapshot)}
}

// Current returns the latest snapshot.
func (s *State) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers a listener. The returned cancel func must be called
// when the consumer goes away; it closes the channel.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish replaces the snapshot and fans it out. Writer-private: only the
// Manager, living in this package, may call it.
func (s *State) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = snap
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
