package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver hands out output paths so that two inputs of one run
// never share an output. Inputs whose stems collide (clip.mov and
// clip.mp4 both become clip.mp4) get " - dupN" variants. All methods are
// goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output path → input that claimed it
	counters map[string]int    // requested path → next dup counter
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve claims requested for input and returns it, or the first free
// " - dupN" variant when another input already holds it. Resolving the
// same input twice returns the same path.
func (cr *CollisionResolver) Resolve(input, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.claim(input, requested) {
		return requested
	}
	dir, base := filepath.Split(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	n := max(cr.counters[requested], 1)
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s - dup%d%s", stem, n, ext))
		if cr.claim(input, candidate) {
			cr.counters[requested] = n + 1
			return candidate
		}
		n++
	}
}

// Owner reports which input holds path.
func (cr *CollisionResolver) Owner(path string) (string, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	in, ok := cr.owners[path]
	return in, ok
}

func (cr *CollisionResolver) claim(input, path string) bool {
	owner, taken := cr.owners[path]
	if taken && owner != input {
		return false
	}
	cr.owners[path] = input
	return true
}
