package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/qchat/internal/app/chat"
	"github.com/slok/qchat/internal/app/chat/chatmock"
	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/engine/enginemock"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/progress"
	"github.com/slok/qchat/internal/worker"
)

// queue records the interactive thread messages so tests can drain them.
type queue struct {
	mu      sync.Mutex
	msgs    []any
	delayed []any
}

func (q *queue) Post(msg any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
}

func (q *queue) PostAfter(d time.Duration, msg any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed = append(q.delayed, msg)
}

// next waits for the next posted message.
func (q *queue) next(t *testing.T) any {
	t.Helper()
	var msg any
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		if len(q.msgs) == 0 {
			return false
		}
		msg = q.msgs[0]
		q.msgs = q.msgs[1:]
		return true
	}, 2*time.Second, time.Millisecond)
	return msg
}

// nextDelayed pops the next delayed message, false if there is none.
func (q *queue) nextDelayed() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.delayed) == 0 {
		return nil, false
	}
	msg := q.delayed[0]
	q.delayed = q.delayed[1:]
	return msg, true
}

type testEnv struct {
	svc     *chat.Service
	queue   *queue
	engine  *enginemock.MockEngine
	surface *chatmock.Surface
	now     *time.Time
}

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestEnv(t *testing.T, observers ...chat.Observer) testEnv {
	t.Helper()

	now := t0
	nowFn := func() time.Time { return now }

	h, err := worker.NewHost(worker.HostConfig{})
	require.NoError(t, err)
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	q := &queue{}
	eng := &enginemock.MockEngine{}
	gate := progress.NewMachine()
	b, err := bridge.New(bridge.Config{Engine: eng, Host: h, Gate: gate, Queue: q, Now: nowFn})
	require.NoError(t, err)

	sf := &chatmock.Surface{}
	sf.On("Tick", mock.Anything).Maybe()
	sf.On("SetStalled", mock.Anything).Maybe()

	svc, err := chat.NewService(chat.ServiceConfig{
		Bridge:     b,
		Progress:   gate,
		Queue:      q,
		Surface:    sf,
		Observers:  observers,
		StallAfter: time.Minute,
		Now:        nowFn,
	})
	require.NoError(t, err)

	return testEnv{svc: svc, queue: q, engine: eng, surface: sf, now: &now}
}

func TestNewServiceInvalidConfig(t *testing.T) {
	_, err := chat.NewService(chat.ServiceConfig{})
	assert.Error(t, err)
}

func TestServiceConversation(t *testing.T) {
	tests := map[string]struct {
		input      string
		mock       func(e *enginemock.MockEngine, s *chatmock.Surface)
		expEntries []model.LogEntry
	}{
		"A successful task should append the user and agent messages.": {
			input: "hello",
			mock: func(e *enginemock.MockEngine, s *chatmock.Surface) {
				e.On("Execute", mock.Anything, "hello").Once().Return(&model.Result{Text: "hi"}, nil)

				s.On("AppendMessage", model.SenderUser, "hello").Once()
				s.On("SetBusy", true).Once()
				s.On("AppendMessage", model.SenderAgent, "hi").Once()
				s.On("SetBusy", false).Once()
			},
			expEntries: []model.LogEntry{
				{Sequence: 1, Sender: model.SenderUser, Text: "hello", At: t0},
				{Sequence: 2, Sender: model.SenderAgent, Text: "hi", At: t0},
			},
		},

		"A failed task should append a failure message.": {
			input: "bad",
			mock: func(e *enginemock.MockEngine, s *chatmock.Surface) {
				e.On("Execute", mock.Anything, "bad").Once().Return(nil, errors.New("unsupported command"))

				s.On("AppendMessage", model.SenderUser, "bad").Once()
				s.On("SetBusy", true).Once()
				s.On("AppendMessage", model.SenderAgent, "Task failed: unsupported command").Once()
				s.On("MarkFailed").Once()
				s.On("SetBusy", false).Once()
			},
			expEntries: []model.LogEntry{
				{Sequence: 1, Sender: model.SenderUser, Text: "bad", At: t0},
				{Sequence: 2, Sender: model.SenderAgent, Text: "Task failed: unsupported command", At: t0},
			},
		},

		"A successful reply that looks like a failure should not be flagged as failed.": {
			input: "quote",
			mock: func(e *enginemock.MockEngine, s *chatmock.Surface) {
				e.On("Execute", mock.Anything, "quote").Once().Return(&model.Result{Text: "Task failed: is a fine title"}, nil)

				s.On("AppendMessage", model.SenderUser, "quote").Once()
				s.On("SetBusy", true).Once()
				s.On("AppendMessage", model.SenderAgent, "Task failed: is a fine title").Once()
				s.On("SetBusy", false).Once()
			},
			expEntries: []model.LogEntry{
				{Sequence: 1, Sender: model.SenderUser, Text: "quote", At: t0},
				{Sequence: 2, Sender: model.SenderAgent, Text: "Task failed: is a fine title", At: t0},
			},
		},

		"Input should be trimmed.": {
			input: "  hello \n",
			mock: func(e *enginemock.MockEngine, s *chatmock.Surface) {
				e.On("Execute", mock.Anything, "hello").Once().Return(&model.Result{Text: "hi"}, nil)

				s.On("AppendMessage", model.SenderUser, "hello").Once()
				s.On("SetBusy", true).Once()
				s.On("AppendMessage", model.SenderAgent, "hi").Once()
				s.On("SetBusy", false).Once()
			},
			expEntries: []model.LogEntry{
				{Sequence: 1, Sender: model.SenderUser, Text: "hello", At: t0},
				{Sequence: 2, Sender: model.SenderAgent, Text: "hi", At: t0},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			env := newTestEnv(t)
			test.mock(env.engine, env.surface)

			h, err := env.svc.Submit(test.input)
			require.NoError(err)
			require.NotNil(h)
			assert.True(env.svc.Progress().Running)

			assert.True(env.svc.Handle(env.queue.next(t)))
			<-h.Delivered()

			assert.Equal(test.expEntries, env.svc.Entries())
			assert.False(env.svc.Progress().Running)
			_, inFlight := env.svc.InFlight()
			assert.False(inFlight)

			env.engine.AssertExpectations(t)
			env.surface.AssertExpectations(t)
		})
	}
}

func TestServiceEmptyInputIsIgnored(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		env := newTestEnv(t)

		h, err := env.svc.Submit(input)
		assert.NoError(t, err)
		assert.Nil(t, h)
		assert.Empty(t, env.svc.Entries())
		assert.False(t, env.svc.Progress().Running)

		env.engine.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		env.surface.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
	}
}

func TestServiceRejectsSubmissionWhileBusy(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t)
	release := make(chan struct{})
	env.engine.On("Execute", mock.Anything, "hello").Once().
		Run(func(mock.Arguments) { <-release }).
		Return(&model.Result{Text: "hi"}, nil)
	env.surface.On("AppendMessage", model.SenderUser, "hello").Once()
	env.surface.On("SetBusy", true).Once()
	env.surface.On("AppendMessage", model.SenderAgent, "hi").Once()
	env.surface.On("SetBusy", false).Once()

	_, err := env.svc.Submit("hello")
	require.NoError(err)

	h, err := env.svc.Submit("x")
	assert.ErrorIs(err, model.ErrSubmissionRejected)
	assert.Nil(h)
	assert.Len(env.svc.Entries(), 1)

	close(release)
	env.svc.Handle(env.queue.next(t))

	entries := env.svc.Entries()
	require.Len(entries, 2)
	assert.Equal("hi", entries[1].Text)
	env.engine.AssertNotCalled(t, "Execute", mock.Anything, "x")
	env.surface.AssertNotCalled(t, "AppendMessage", model.SenderUser, "x")
	env.surface.AssertExpectations(t)
}

func TestServiceDuplicateCompletionIsIgnored(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t)
	env.engine.On("Execute", mock.Anything, "hello").Once().Return(&model.Result{Text: "hi"}, nil)
	env.surface.On("AppendMessage", mock.Anything, mock.Anything)
	env.surface.On("SetBusy", mock.Anything)

	_, err := env.svc.Submit("hello")
	require.NoError(err)

	c := env.queue.next(t)
	env.svc.Handle(c)
	env.svc.Handle(c)

	assert.Len(env.svc.Entries(), 2)
	env.surface.AssertNumberOfCalls(t, "AppendMessage", 2)
	env.surface.AssertNumberOfCalls(t, "SetBusy", 2)
}

func TestServiceSequencesAndOneAgentEntryPerSubmission(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var observed []model.LogEntry
	env := newTestEnv(t, chat.ObserverFunc(func(e model.LogEntry) { observed = append(observed, e) }))
	env.surface.On("AppendMessage", mock.Anything, mock.Anything)
	env.surface.On("SetBusy", mock.Anything)
	env.surface.On("MarkFailed").Once()

	inputs := []string{"one", "fail two", "three", "four"}
	for _, in := range inputs {
		if in == "fail two" {
			env.engine.On("Execute", mock.Anything, in).Once().Return(nil, errors.New("nope"))
		} else {
			env.engine.On("Execute", mock.Anything, in).Once().Return(&model.Result{Text: "re: " + in}, nil)
		}

		_, err := env.svc.Submit(in)
		require.NoError(err)
		env.svc.Handle(env.queue.next(t))
	}

	entries := env.svc.Entries()
	require.Len(entries, 2*len(inputs))

	agents := 0
	for i, e := range entries {
		assert.Equal(i+1, e.Sequence)
		if e.Sender == model.SenderAgent {
			agents++
		}
	}
	assert.Equal(len(inputs), agents)
	assert.Equal("Task failed: nope", entries[3].Text)
	assert.Equal(entries, observed)
}

func TestServiceTicking(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t)
	release := make(chan struct{})
	env.engine.On("Execute", mock.Anything, "hello").Once().
		Run(func(mock.Arguments) { <-release }).
		Return(&model.Result{Text: "hi"}, nil)
	env.surface.On("AppendMessage", mock.Anything, mock.Anything)
	env.surface.On("SetBusy", mock.Anything)

	h, err := env.svc.Submit("hello")
	require.NoError(err)

	// Each handled tick advances the indicator and schedules the next one.
	for i := 1; i <= 3; i++ {
		msg, ok := env.queue.nextDelayed()
		require.True(ok)
		assert.Equal(progress.TickMsg{Run: h.Run()}, msg)
		env.svc.Handle(msg)
		assert.Equal(i, env.svc.Progress().Tick)
	}
	env.surface.AssertCalled(t, "Tick", 1)
	env.surface.AssertCalled(t, "Tick", 3)

	// A tick from an old run is ignored.
	env.svc.Handle(progress.TickMsg{Run: h.Run() - 1})
	assert.Equal(3, env.svc.Progress().Tick)

	close(release)
	env.svc.Handle(env.queue.next(t))

	// Once idle, the pending tick does not schedule more.
	msg, ok := env.queue.nextDelayed()
	require.True(ok)
	env.svc.Handle(msg)
	_, ok = env.queue.nextDelayed()
	assert.False(ok)
	env.surface.AssertNumberOfCalls(t, "Tick", 3)
}

func TestServiceStallWarning(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := newTestEnv(t)
	release := make(chan struct{})
	env.engine.On("Execute", mock.Anything, "slow").Once().
		Run(func(mock.Arguments) { <-release }).
		Return(&model.Result{Text: "done"}, nil)
	env.surface.On("AppendMessage", mock.Anything, mock.Anything)
	env.surface.On("SetBusy", mock.Anything)

	_, err := env.svc.Submit("slow")
	require.NoError(err)

	inFlight, ok := env.svc.InFlight()
	require.True(ok)
	assert.Equal("slow", inFlight.Item.Command)
	assert.Zero(inFlight.Age)

	// Not stalled yet.
	msg, _ := env.queue.nextDelayed()
	env.svc.Handle(msg)
	env.surface.AssertNotCalled(t, "SetStalled", mock.Anything)

	*env.now = t0.Add(2 * time.Minute)
	msg, _ = env.queue.nextDelayed()
	env.svc.Handle(msg)
	env.surface.AssertCalled(t, "SetStalled", 2*time.Minute)

	inFlight, ok = env.svc.InFlight()
	require.True(ok)
	assert.Equal(2*time.Minute, inFlight.Age)

	close(release)
	env.svc.Handle(env.queue.next(t))
	env.surface.AssertCalled(t, "SetStalled", time.Duration(0))
}

func TestServiceHandle(t *testing.T) {
	env := newTestEnv(t)

	called := false
	assert.True(t, env.svc.Handle(loop.Call(func() { called = true })))
	assert.True(t, called)

	assert.False(t, env.svc.Handle("unknown"))
}
