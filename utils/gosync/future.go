package gosync

import (
	"context"
	"sync"
)

// Future 只能被赋值一次的异步结果，第一次Complete生效，之后的Complete被忽略
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with value.
func Completed[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(value)
	return f
}

// Failed returns a future already failed with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Complete 设置结果，返回本次调用是否生效
func (f *Future[T]) Complete(value T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		completed = true
		close(f.done)
	})
	return completed
}

func (f *Future[T]) Resolve(value T) bool {
	return f.Complete(value, nil)
}

func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.Complete(zero, err)
}

// Done is closed once the future has a result.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get 阻塞直到有结果
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait blocks until the future completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then 在结果就绪后于新的协程中执行fn
func (f *Future[T]) Then(fn func(value T, err error)) {
	Go(context.Background(), func(ctx context.Context) {
		<-f.done
		fn(f.value, f.err)
	})
}
