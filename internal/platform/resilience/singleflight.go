package resilience

import "golang.org/x/sync/singleflight"

// Group deduplicates concurrent calls for the same key and returns a typed
// result to every caller.
type Group[V any] struct {
	group singleflight.Group
}

func (g *Group[V]) Do(key string, fn func() (V, error)) (V, error, bool) {
	out, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	value, _ := out.(V)
	return value, err, shared
}

func (g *Group[V]) Forget(key string) {
	g.group.Forget(key)
}

// Result is what DoChan delivers once the shared call finishes.
type Result[V any] struct {
	Val    V
	Err    error
	Shared bool
}

// DoChan is Do without blocking, so a caller can stop waiting while the
// shared call keeps running for everyone else.
func (g *Group[V]) DoChan(key string, fn func() (V, error)) <-chan Result[V] {
	out := make(chan Result[V], 1)
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})
	go func() {
		res := <-ch
		value, _ := res.Val.(V)
		out <- Result[V]{Val: value, Err: res.Err, Shared: res.Shared}
	}()
	return out
}
