package lazy

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Loader builds a dependency on first use and keeps the outcome, a failed build is never retried.
type Loader[T any] interface {
	MustLoad() T
	Load() (T, error)
	IfLoaded(func(T))
}

type loader[T any] struct {
	load   func() (T, error)
	loaded atomic.Bool
}

func New[T any](provider func() (T, error)) Loader[T] {
	l := &loader[T]{}
	l.load = sync.OnceValues(func() (T, error) {
		value, err := provider()
		if err != nil {
			var zero T
			return zero, fmt.Errorf("load %s: %w", reflect.TypeOf((*T)(nil)).Elem(), err)
		}

		l.loaded.Store(true)
		return value, nil
	})

	return l
}

func (l *loader[T]) MustLoad() T {
	value, err := l.load()
	if err != nil {
		panic(err)
	}

	return value
}

func (l *loader[T]) Load() (T, error) {
	return l.load()
}

// IfLoaded calls f only when a previous Load succeeded, it never triggers loading.
func (l *loader[T]) IfLoaded(f func(T)) {
	if !l.loaded.Load() {
		return
	}

	value, _ := l.load()
	f(value)
}
