// Package cq implements a simple concurrent queue.
//
// Values are added one at a time from any goroutine and retrieved in
// batches containing everything added since the previous retrieval.
package cq

import "sync"

type Queue[T any] struct {
	done  chan struct{}
	close sync.Once

	add chan T
	get chan []T
}

func New[T any]() *Queue[T] {
	q := Queue[T]{
		done: make(chan struct{}),
		add:  make(chan T),
		get:  make(chan []T),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that were not yet retrieved are
// dropped.
func (q *Queue[T]) Stop() {
	q.close.Do(func() {
		close(q.done)
	})
}

// Done is closed when the queue is stopped.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Add returns a channel that values can be sent to in order to add
// them to the queue.
func (q *Queue[T]) Add() chan<- T {
	return q.add
}

// Get returns a channel that yields every value queued since the last
// receive. It never yields an empty batch.
func (q *Queue[T]) Get() <-chan []T {
	return q.get
}

func (q *Queue[T]) run() {
	var s []T
	var get chan []T

	for {
		select {
		case <-q.done:
			return

		case v := <-q.add:
			s = append(s, v)
			get = q.get

		case get <- s:
			s = nil
			get = nil
		}
	}
}
