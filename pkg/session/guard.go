package session

import "sync"

// Guard allows at most one in-flight interaction per chat. It is advisory and
// in-memory: losing it on restart only allows a duplicate action.
type Guard struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

func NewGuard() *Guard {
	return &Guard{busy: make(map[int64]struct{})}
}

// TryAcquire marks the chat busy. It returns false when an interaction for the
// chat is already running.
func (g *Guard) TryAcquire(chatID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[chatID]; ok {
		return false
	}
	g.busy[chatID] = struct{}{}
	return true
}

func (g *Guard) Release(chatID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, chatID)
}
