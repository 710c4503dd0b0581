package transceiver

import "sync"

// Guard is the single token shared by capture and playback.
//
// Whoever holds the token owns both receiver and transmitter. TryAcquire
// never waits: a held token is reported as ErrBusy.
type Guard struct {
	mu     sync.Mutex
	holder string
}

// Token is a held Guard. Release is idempotent.
type Token struct {
	g    *Guard
	once sync.Once
}

// TryAcquire takes the token for holder ("capture", "playback").
func (g *Guard) TryAcquire(holder string) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder != "" {
		return nil, ErrBusy
	}
	g.holder = holder
	return &Token{g: g}, nil
}

// Holder reports who holds the token, or "" when free.
func (g *Guard) Holder() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holder
}

// Release returns the token to the guard.
func (t *Token) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.g.mu.Lock()
		t.g.holder = ""
		t.g.mu.Unlock()
	})
}
