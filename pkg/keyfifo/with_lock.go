package keyfifo

import "context"

// WithLock runs action once the key's prior action (if any) has settled.
// The caller receives action's own outcome; a failing action still
// settles the tail, so later actions for the key are never blocked.
//
// ctx is handed to action untouched. A canceled ctx does not remove the
// action from the queue: once submitted, it runs to completion.
func WithLock[K comparable, R any](
	ctx context.Context,
	ex *Executor[K],
	key K,
	action func(ctx context.Context) (R, error),
) (R, error) {
	prev, settle := ex.enqueue(key)
	defer settle()

	if prev != nil {
		<-prev
	}

	return action(ctx)
}
