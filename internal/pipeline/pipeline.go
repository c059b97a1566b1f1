// Package pipeline provides a scoped-resource executor: acquire a resource,
// run a unit of work against it and release the resource on every exit path.
package pipeline

import "context"

// ReleaseFunc returns the acquired resource. It is invoked exactly once per
// successful acquire, also when the unit of work panics.
type ReleaseFunc func()

// AcquireFunc acquires a resource and returns it with its release func.
type AcquireFunc[R any] func(ctx context.Context) (R, ReleaseFunc, error)

// WorkFunc is a unit of work executed against an acquired resource.
type WorkFunc[R, T any] func(ctx context.Context, resource R) (T, error)

// Run acquires a resource, runs work against it and releases the resource
// before returning. The work runs at most once. A work error is returned
// after release completes; release itself cannot mask it. When onError
// handlers are supplied a work error is passed to them and swallowed, and
// the zero result is returned.
func Run[R, T any](ctx context.Context, acquire AcquireFunc[R], work WorkFunc[R, T], onError ...func(error)) (T, error) {
	var zero T

	resource, release, err := acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	result, err := work(ctx, resource)
	if err != nil {
		if len(onError) > 0 {
			for _, handle := range onError {
				handle(err)
			}
			return zero, nil
		}
		return zero, err
	}

	return result, nil
}
