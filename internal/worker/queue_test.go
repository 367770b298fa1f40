package worker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	assert.Nil(t, q.Drain())

	q.Post(Message{Kind: KindProgress, Text: "a"})
	q.Post(Message{Kind: KindProgress, Text: "b"})
	q.Post(Message{Kind: KindResult})
	assert.Equal(t, 3, q.Len())

	got := q.Drain()
	assert.Equal(t, []string{"a", "b", ""}, texts(got))
	assert.True(t, got[2].Terminal())
	assert.Nil(t, q.Drain())
	assert.Zero(t, q.Len())
}

func TestQueueConcurrentPost(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Post(Message{Kind: KindProgress, Text: fmt.Sprintf("%d-%d", i, j)})
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, q.Drain(), 400)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "progress", KindProgress.String())
	assert.Equal(t, "cancelled", KindCancelled.String())
	assert.False(t, Message{Kind: KindProgress}.Terminal())
	assert.True(t, Message{Kind: KindError}.Terminal())
}

func texts(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
