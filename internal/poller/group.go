package poller

import "sync"

// Stopper is any loop regardless of its result type.
type Stopper interface {
	Stop()
}

// Group stops a set of loops together, e.g. when the session ends.
type Group struct {
	mu    sync.Mutex
	loops []Stopper
}

func (g *Group) Add(s Stopper) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loops = append(g.loops, s)
}

// StopAll stops every registered loop. Loops stay registered and may be restarted.
func (g *Group) StopAll() {
	g.mu.Lock()
	loops := make([]Stopper, len(g.loops))
	copy(loops, g.loops)
	g.mu.Unlock()

	for _, s := range loops {
		s.Stop()
	}
}
