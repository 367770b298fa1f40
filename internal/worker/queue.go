package worker

import (
	"sync"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// Kind tells the consumer of a Queue what a Message carries.
type Kind int

const (
	KindProgress Kind = iota
	KindResult
	KindError
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Message is one worker to UI notification.
type Message struct {
	Kind   Kind
	Text   string
	Result *entity.ProcessResult
	Err    error
}

// Terminal reports whether m ends a run. Exactly one terminal message is posted per run.
func (m Message) Terminal() bool {
	return m.Kind != KindProgress
}

// Queue is an unbounded FIFO with a single consumer. Post never blocks.
type Queue struct {
	mu    sync.Mutex
	items []Message
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
}

// Drain removes and returns every queued message in posting order, or nil when empty.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pushFront(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]Message, 0, len(msgs)+len(q.items)), msgs...), q.items...)
}
