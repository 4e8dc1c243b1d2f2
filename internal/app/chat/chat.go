package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/progress"
	"github.com/slok/qchat/internal/transcript"
)

const (
	DefaultTickPeriod = 50 * time.Millisecond
	DefaultStallAfter = 2 * time.Minute
)

// Surface is the presentation layer of the conversation.
// All the methods are called from the interactive thread.
type Surface interface {
	AppendMessage(sender model.Sender, text string)
	SetBusy(active bool)
	Tick(step int)
}

// StallNotifier is optionally implemented by a Surface to show that the
// in-flight task is taking too long. A zero age clears the notice.
type StallNotifier interface {
	SetStalled(age time.Duration)
}

// FailureNotifier is optionally implemented by a Surface to flag the last
// appended Agent message as a task failure.
type FailureNotifier interface {
	MarkFailed()
}

// Observer is notified of every appended log entry, from the interactive thread.
type Observer interface {
	EntryAppended(e model.LogEntry)
}

// ObserverFunc is a helper to use a function as an Observer.
type ObserverFunc func(e model.LogEntry)

func (f ObserverFunc) EntryAppended(e model.LogEntry) { f(e) }

// Bridge is the task submission bridge.
type Bridge interface {
	Submit(command string) (*bridge.Handle, error)
	Deliver(c bridge.Completion) (bridge.Outcome, bool)
	Pending() *bridge.Handle
}

// Progress is the progress state machine.
type Progress interface {
	Advance(run uint64) (step int, ok bool)
	State() model.ProgressState
}

// ServiceConfig is the configuration for the chat service.
type ServiceConfig struct {
	Bridge    Bridge
	Progress  Progress
	Queue     loop.Queue
	Surface   Surface
	Log       *transcript.Log
	Observers []Observer
	// TickPeriod is the progress indicator refresh interval.
	TickPeriod time.Duration
	// StallAfter is the in-flight age after which a stall warning is emitted.
	StallAfter time.Duration
	Now        func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Bridge == nil {
		return fmt.Errorf("bridge is required")
	}
	if c.Progress == nil {
		return fmt.Errorf("progress is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Surface == nil {
		return fmt.Errorf("surface is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Log == nil {
		c.Log = transcript.NewLog(c.Now)
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = DefaultTickPeriod
	}
	if c.StallAfter == 0 {
		c.StallAfter = DefaultStallAfter
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Chat"})
	return nil
}

// Service is the interactive controller. Every mutation of the conversation
// state goes through it and happens on the interactive thread.
type Service struct {
	bridge     Bridge
	progress   Progress
	queue      loop.Queue
	surface    Surface
	log        *transcript.Log
	observers  []Observer
	tickPeriod time.Duration
	stallAfter time.Duration
	now        func() time.Time
	logger     log.Logger

	stallWarned string
}

// NewService creates a new chat service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		bridge:     cfg.Bridge,
		progress:   cfg.Progress,
		queue:      cfg.Queue,
		surface:    cfg.Surface,
		log:        cfg.Log,
		observers:  cfg.Observers,
		tickPeriod: cfg.TickPeriod,
		stallAfter: cfg.StallAfter,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}, nil
}

// Submit sends the user text to the task engine.
// Empty text is ignored and returns a nil handle without error.
func (s *Service) Submit(text string) (*bridge.Handle, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	h, err := s.bridge.Submit(text)
	if err != nil {
		return nil, err
	}

	s.append(model.SenderUser, text)
	s.surface.SetBusy(true)
	s.queue.PostAfter(s.tickPeriod, progress.TickMsg{Run: h.Run()})

	return h, nil
}

// Handle processes a message from the interactive queue.
// Returns false if the message is not handled by the service.
func (s *Service) Handle(msg any) bool {
	switch m := msg.(type) {
	case bridge.Completion:
		s.complete(m)
	case progress.TickMsg:
		s.tick(m)
	case loop.Call:
		m()
	default:
		return false
	}

	return true
}

// Entries returns the conversation log entries.
func (s *Service) Entries() []model.LogEntry { return s.log.Entries() }

// Progress returns the progress indicator state.
func (s *Service) Progress() model.ProgressState { return s.progress.State() }

// InFlight describes the pending work item.
type InFlight struct {
	Item model.WorkItem
	Age  time.Duration
}

// InFlight returns the pending work item, false if there is none.
func (s *Service) InFlight() (InFlight, bool) {
	h := s.bridge.Pending()
	if h == nil {
		return InFlight{}, false
	}

	item := h.Item()
	return InFlight{Item: item, Age: s.now().Sub(item.SubmittedAt)}, true
}

func (s *Service) complete(c bridge.Completion) {
	out, ok := s.bridge.Deliver(c)
	if !ok {
		return
	}

	if out.Failed() {
		s.logger.Warningf("Task %s failed: %s", c.Handle.ID(), out.Err)
	}

	s.append(model.SenderAgent, out.Text())
	if n, ok := s.surface.(FailureNotifier); ok && out.Failed() {
		n.MarkFailed()
	}
	s.surface.SetBusy(false)
	if n, ok := s.surface.(StallNotifier); ok && s.stallWarned == c.Handle.ID() {
		n.SetStalled(0)
	}
}

func (s *Service) tick(m progress.TickMsg) {
	step, ok := s.progress.Advance(m.Run)
	if !ok {
		return
	}

	s.surface.Tick(step)
	s.checkStall()
	s.queue.PostAfter(s.tickPeriod, m)
}

func (s *Service) checkStall() {
	if s.stallAfter < 0 {
		return
	}

	inFlight, ok := s.InFlight()
	if !ok || inFlight.Age < s.stallAfter {
		return
	}

	if s.stallWarned != inFlight.Item.ID {
		s.stallWarned = inFlight.Item.ID
		s.logger.Warningf("Task %s has been running for %s", inFlight.Item.ID, inFlight.Age.Round(time.Second))
	}

	if n, ok := s.surface.(StallNotifier); ok {
		n.SetStalled(inFlight.Age)
	}
}

func (s *Service) append(sender model.Sender, text string) {
	e := s.log.Append(sender, text)
	s.surface.AppendMessage(sender, text)
	for _, o := range s.observers {
		o.EntryAppended(e)
	}
}
