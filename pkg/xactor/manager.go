package xactor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	mu     sync.RWMutex
	actors = make(map[string]*ActorGroutine)
)

func registerActor(actor *ActorGroutine) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := actors[actor.state.Name()]; ok {
		return errors.Errorf("actor %v is repeated", actor.state.Name())
	}
	actors[actor.state.Name()] = actor
	return nil
}

func deregisterActor(actor *ActorGroutine) {
	mu.Lock()
	defer mu.Unlock()
	if actors[actor.state.Name()] == actor {
		delete(actors, actor.state.Name())
	}
}

// CloseAll closes every registered actor, each after draining its mailbox.
func CloseAll(ctx context.Context) {
	mu.RLock()
	as := make([]*ActorGroutine, 0, len(actors))
	for _, actor := range actors {
		as = append(as, actor)
	}
	mu.RUnlock()

	for _, actor := range as {
		actor.Close(ctx)
	}
}
