package notify

import (
	"container/heap"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTriggerTime = errors.New("notify: invalid trigger time")
	ErrUnknownToken       = errors.New("notify: unknown token")
	ErrEngineStopped      = errors.New("notify: engine stopped")
)

const (
	KindReminder = "reminder"
	KindBuffer   = "buffer"
)

type Payload struct {
	TaskID string
	Title  string
	Kind   string
}

type Event struct {
	Token     string
	TaskID    string
	Title     string
	Kind      string
	TriggerAt time.Time
}

type queueItem struct {
	event Event
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].event.TriggerAt.Before(pq[j].event.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Engine delivers notification events at their trigger instants. Every
// scheduled event is addressed by a token; cancelling a token tombstones the
// event, which is discarded the next time it reaches the head of the queue.
type Engine struct {
	mu        sync.Mutex
	queue     priorityQueue
	pending   map[string]struct{}
	cancelled map[string]struct{}
	out       chan Event
	wakeup    chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
	dropped   uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:     make(priorityQueue, 0),
		pending:   make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
		out:       make(chan Event, bufferSize),
		wakeup:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Event {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// ScheduleAt queues a notification for the given instant and returns its
// token. Instants in the past fire on the next loop pass.
func (e *Engine) ScheduleAt(at time.Time, p Payload) (string, error) {
	if at.IsZero() {
		return "", ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return "", ErrEngineStopped
	}

	token := uuid.NewString()
	heap.Push(&e.queue, queueItem{event: Event{
		Token:     token,
		TaskID:    p.TaskID,
		Title:     p.Title,
		Kind:      p.Kind,
		TriggerAt: at,
	}})
	e.pending[token] = struct{}{}
	e.signalWakeup()
	return token, nil
}

// Cancel withdraws a scheduled notification. A token that never existed,
// already fired, or was already cancelled yields ErrUnknownToken.
func (e *Engine) Cancel(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrUnknownToken
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[token]; !ok {
		return ErrUnknownToken
	}
	delete(e.pending, token)
	e.cancelled[token] = struct{}{}
	e.signalWakeup()
	return nil
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, ev := range due {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

// peek discards cancelled events at the head so the loop never sleeps on a
// tombstone.
func (e *Engine) peek() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) > 0 {
		head := e.queue[0].event
		if _, dead := e.cancelled[head.Token]; dead {
			heap.Pop(&e.queue)
			delete(e.cancelled, head.Token)
			continue
		}
		return head, true
	}
	return Event{}, false
}

func (e *Engine) popDue(now time.Time) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Event, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].event
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		if _, dead := e.cancelled[item.event.Token]; dead {
			delete(e.cancelled, item.event.Token)
			continue
		}
		delete(e.pending, item.event.Token)
		out = append(out, item.event)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
