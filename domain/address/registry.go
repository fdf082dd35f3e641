package address

import (
	"context"
	"sync"

	"mako/domain/dex"
)

// Registry lazily starts one Actor per address and hands out the live
// instance. Actors share the registry's context and stop together.
type Registry struct {
	oracle dex.BalanceOracle

	mu     sync.Mutex
	actors map[dex.PublicKey]*Actor
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistry creates a registry whose actors run until Close.
func NewRegistry(oracle dex.BalanceOracle) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		oracle: oracle,
		actors: make(map[dex.PublicKey]*Actor),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Actor returns the actor for addr, starting it on first reference.
func (r *Registry) Actor(addr dex.PublicKey) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[addr]
	if !ok {
		a = NewActor(r.ctx, addr, r.oracle)
		r.actors[addr] = a
		log.Debugf("started actor for address %s", addr)
	}
	return a
}

// Close stops every actor and waits for their goroutines to exit.
func (r *Registry) Close() {
	r.cancel()
	r.mu.Lock()
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()
	for _, a := range actors {
		a.Wait()
	}
}
