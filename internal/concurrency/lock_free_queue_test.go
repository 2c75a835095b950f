// Author: momentics <momentics@gmail.com>

package concurrency

import (
	"sync"
	"testing"
)

func TestLockFreeQueueBounds(t *testing.T) {
	q := NewLockFreeQueue[int](2)
	if !q.Enqueue(1) || !q.Enqueue(2) {
		t.Fatal("Enqueue into free slots failed")
	}
	if q.Enqueue(3) {
		t.Fatal("Enqueue into a full queue should fail")
	}
	if v, ok := q.Dequeue(); !ok || v != 1 {
		t.Fatalf("Dequeue = %d, %v", v, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestLockFreeQueueConcurrent(t *testing.T) {
	q := NewLockFreeQueue[int](1024)
	const producers, per = 4, 10000
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				for !q.Enqueue(base + i) {
				}
			}
		}(p * per)
	}

	seen := make([]bool, producers*per)
	for got := 0; got < producers*per; {
		if v, ok := q.Dequeue(); ok {
			if seen[v] {
				t.Fatalf("value %d dequeued twice", v)
			}
			seen[v] = true
			got++
		}
	}
	wg.Wait()
}
