package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replayscraper/pkg/showdown"
)

func ref(i int) showdown.Reference {
	return showdown.Reference{ID: fmt.Sprintf("gen9ou-%d", i), Format: "[Gen 9] OU"}
}

func TestPushPop(t *testing.T) {
	q := New()

	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(ref(1), ref(2))
	q.Push()
	q.Push(ref(2))
	assert.Equal(t, 3, q.Len())

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "gen9ou-2", got.ID)

	rest := q.Drain()
	assert.Len(t, rest, 2)
	assert.Equal(t, 0, q.Len())
}

func TestConcurrentPushAndDrain(t *testing.T) {
	const (
		n = 1000
		k = 8
	)
	q := New()

	var producers sync.WaitGroup
	for p := 0; p < k; p++ {
		producers.Add(1)
		go func(p int) {
			defer producers.Done()
			for i := 0; i < n; i++ {
				q.Push(ref(p*n + i))
			}
		}(p)
	}

	done := make(chan struct{})
	seen := make(map[string]int)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for {
			if r, ok := q.Pop(); ok {
				seen[r.ID]++
				continue
			}
			select {
			case <-done:
				for r, ok := q.Pop(); ok; r, ok = q.Pop() {
					seen[r.ID]++
				}
				return
			default:
			}
		}
	}()

	producers.Wait()
	close(done)
	consumer.Wait()

	assert.Len(t, seen, n*k)
	for id, count := range seen {
		assert.Equal(t, 1, count, "reference %s popped %d times", id, count)
	}
	assert.Equal(t, 0, q.Len())
}
