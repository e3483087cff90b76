package consent

// Gate is the single authority on whether tracking may proceed.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// CanTrack returns true only when a record exists and analytics is
// explicitly granted. It never panics; a missing or broken store denies.
func (g *Gate) CanTrack() (allowed bool) {
	if g == nil || g.store == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			allowed = false
		}
	}()

	prefs, ok := g.store.Load()
	return ok && prefs.Analytics
}
