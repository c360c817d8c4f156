package server

import "sync"

type streamFrame struct {
	seq  uint64
	jpeg []byte
}

// Registry holds the latest encoded avatar frame of each open session so
// viewers can watch it. It never touches tracking state.
type Registry struct {
	mu     sync.RWMutex
	frames map[string]*streamFrame
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{frames: make(map[string]*streamFrame)}
}

// Open registers a session with no frame yet.
func (r *Registry) Open(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[id] = &streamFrame{}
}

// Remove forgets a session; streams watching it end.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.frames, id)
}

// Publish stores jpeg as the session's latest frame. Unknown sessions are ignored.
func (r *Registry) Publish(id string, jpeg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.frames[id]; ok {
		f.seq++
		f.jpeg = jpeg
	}
}

// Latest returns the newest frame and its sequence number. ok is false once
// the session is gone.
func (r *Registry) Latest(id string) (jpeg []byte, seq uint64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.frames[id]
	if !ok {
		return nil, 0, false
	}
	return f.jpeg, f.seq, true
}
