package desktop

// Callbacks are the entry points a producer uses to change window state.
// Both are safe for concurrent use and never fail; errors are logged by
// the registry.
type Callbacks struct {
	Push    func(TileUpdate)
	Destroy func(id uint32)
}

// Callbacks returns producer callbacks bound to this registry.
func (r *Registry) Callbacks() Callbacks {
	return Callbacks{
		Push:    r.push,
		Destroy: r.destroy,
	}
}

func (r *Registry) push(u TileUpdate) {
	_ = r.Upsert(u)
}

func (r *Registry) destroy(id uint32) {
	_ = r.MarkDestroyed(id)
}
