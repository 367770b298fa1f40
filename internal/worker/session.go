package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"go.uber.org/zap"
)

// Processor is the pipeline a Session drives. usecase.FrameProcessor implements it.
type Processor interface {
	Process(ctx context.Context, req entity.ProcessRequest) (*entity.ProcessResult, error)
	Cancel()
	SetStatusFunc(fn func(string))
}

// Session runs at most one pipeline at a time on a background goroutine and reports
// through its Queue.
type Session struct {
	proc   Processor
	queue  *Queue
	logger *zap.Logger

	busy atomic.Bool
	wg   sync.WaitGroup

	mu   sync.Mutex
	stop context.CancelFunc
}

func NewSession(proc Processor, logger *zap.Logger) *Session {
	s := &Session{proc: proc, queue: NewQueue(), logger: logger}
	proc.SetStatusFunc(func(line string) {
		s.queue.Post(Message{Kind: KindProgress, Text: line})
	})
	return s
}

func (s *Session) Queue() *Queue {
	return s.queue
}

func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Start launches a run of req. It returns false, and does nothing, while another run is active.
func (s *Session) Start(ctx context.Context, req entity.ProcessRequest) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("run already in progress, ignoring start")
		return false
	}

	runCtx, stop := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx, stop, req)
	return true
}

// Cancel asks the active run to stop. It has no effect when nothing is running.
// The run context is cancelled as well, so a cancel issued before the pipeline has
// reset its flag is not lost.
func (s *Session) Cancel() {
	if !s.busy.Load() {
		return
	}
	s.proc.Cancel()

	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Wait blocks until the active run, if any, has posted its terminal message.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context, stop context.CancelFunc, req entity.ProcessRequest) {
	defer s.wg.Done()
	defer stop()

	msg := s.process(ctx, req)
	// busy is cleared first so a consumer reacting to the terminal message can start again
	s.busy.Store(false)
	s.queue.Post(msg)
}

func (s *Session) process(ctx context.Context, req entity.ProcessRequest) (msg Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline panicked", zap.Any("panic", r))
			msg = Message{Kind: KindError, Err: fmt.Errorf("unexpected error: %v", r)}
		}
	}()

	result, err := s.proc.Process(ctx, req)
	switch {
	case err == nil:
		return Message{Kind: KindResult, Result: result}
	case entity.IsCancelled(err):
		return Message{Kind: KindCancelled, Text: "Processing cancelled", Err: err}
	default:
		return Message{Kind: KindError, Err: err}
	}
}
