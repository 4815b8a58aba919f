package cq

import (
	"slices"
	"testing"
	"time"
)

func TestQueueBatches(t *testing.T) {
	q := New[int]()
	defer q.Stop()

	for i := 0; i < 3; i++ {
		q.Add() <- i
	}

	var got []int
	timeout := time.After(5 * time.Second)
	for len(got) < 3 {
		select {
		case batch := <-q.Get():
			if len(batch) == 0 {
				t.Fatal("received an empty batch")
			}
			got = append(got, batch...)
		case <-timeout:
			t.Fatalf("timed out with %v", got)
		}
	}

	if !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("got %v, want [0 1 2]", got)
	}
}

func TestQueueStop(t *testing.T) {
	q := New[int]()
	q.Stop()
	q.Stop()

	select {
	case <-q.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done() was not closed")
	}
}
