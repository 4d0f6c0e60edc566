// Package queue 提供有界 FIFO 队列
//
// 队列满时丢弃最旧的元素，Pop 支持 context 取消。用于轮次适配器的本地回环
// 队列以及主机按协议划分的入站队列。
package queue

import (
	"container/list"
	"context"
	"errors"
	"sync"
)

// ErrClosed 队列已关闭且为空
var ErrClosed = errors.New("queue: closed")

// Stats 队列统计
type Stats struct {
	Pushed  int64
	Popped  int64
	Dropped int64
	Len     int
}

// Queue 有界 FIFO 队列
type Queue[T any] struct {
	mu sync.Mutex

	items   *list.List
	maxSize int // <= 0 表示不限制

	// notify 每次入队或关闭时关闭并替换，唤醒所有等待者
	notify chan struct{}
	closed bool

	totalPushed  int64
	totalPopped  int64
	totalDropped int64
}

// New 创建队列
func New[T any](maxSize int) *Queue[T] {
	return &Queue[T]{
		items:   list.New(),
		maxSize: maxSize,
		notify:  make(chan struct{}),
	}
}

// Push 入队
//
// 队列已满时移除最旧元素。返回被丢弃的元素个数；队列已关闭时返回 ErrClosed。
func (q *Queue[T]) Push(v T) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrClosed
	}

	dropped := 0
	for q.maxSize > 0 && q.items.Len() >= q.maxSize {
		q.items.Remove(q.items.Front())
		q.totalDropped++
		dropped++
	}

	q.items.PushBack(v)
	q.totalPushed++
	q.wakeLocked()
	return dropped, nil
}

// TryPop 非阻塞出队
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop 阻塞出队
//
// 关闭后仍会先返回剩余元素，队列为空时返回 ErrClosed。
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if v, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Ready 返回在下一次入队或关闭时关闭的通道
//
// 用于与其他事件源一起 select。
func (q *Queue[T]) Ready() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() > 0 || q.closed {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return q.notify
}

// Len 返回当前元素个数
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close 关闭队列并唤醒所有等待者，可重复调用
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.wakeLocked()
}

// Closed 是否已关闭
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Stats 返回统计信息
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pushed:  q.totalPushed,
		Popped:  q.totalPopped,
		Dropped: q.totalDropped,
		Len:     q.items.Len(),
	}
}

func (q *Queue[T]) popLocked() (T, bool) {
	front := q.items.Front()
	if front == nil {
		var zero T
		return zero, false
	}
	q.items.Remove(front)
	q.totalPopped++
	return front.Value.(T), true
}

func (q *Queue[T]) wakeLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}
