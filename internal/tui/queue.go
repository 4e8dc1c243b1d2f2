package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Queue is the interactive queue of the TUI, messages are sent to the Bubble
// Tea program event loop. Post waits until the event loop accepts the message
// or the program has finished, so it must not be called from Update.
type Queue struct {
	mu      sync.Mutex
	program *tea.Program
	pending []any
}

// NewQueue returns a queue not attached to a program yet. Messages posted
// before attaching are sent once the program is attached.
func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(msg any) {
	q.mu.Lock()
	p := q.program
	if p == nil {
		q.pending = append(q.pending, msg)
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	p.Send(msg)
}

func (q *Queue) PostAfter(d time.Duration, msg any) {
	time.AfterFunc(d, func() { q.Post(msg) })
}

func (q *Queue) attach(p *tea.Program) {
	q.mu.Lock()
	q.program = p
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(pending) > 0 {
		go func() {
			for _, msg := range pending {
				p.Send(msg)
			}
		}()
	}
}
