package lib_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/qchat/pkg/lib"
)

// newTestClient creates a client that is closed when the test finishes.
func newTestClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()

	client, err := lib.New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})

	return client
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg    lib.Config
		expErr bool
		expIs  error
	}{
		"An empty config should use the fake engine.": {
			cfg: lib.Config{},
		},

		"An unknown engine should fail.": {
			cfg:    lib.Config{Engine: lib.EngineType("unknown")},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"A custom executor should ignore the engine type.": {
			cfg: lib.Config{
				Engine:   lib.EngineType("unknown"),
				Executor: lib.ExecutorFunc(func(context.Context, string) (string, error) { return "", nil }),
			},
		},

		"The exec engine without command should fail.": {
			cfg:    lib.Config{Engine: lib.EngineExec},
			expErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client, err := lib.New(tc.cfg)

			if tc.expErr {
				require.Error(t, err)
				if tc.expIs != nil {
					assert.ErrorIs(t, err, tc.expIs)
				}
				return
			}

			require.NoError(t, err)
			assert.NoError(t, client.Close(context.Background()))
		})
	}
}

func TestAsk(t *testing.T) {
	tests := map[string]struct {
		request   string
		expReply  *lib.Reply
		expFailed bool
		expIs     error
	}{
		"A request should be answered.": {
			request:  "hello",
			expReply: &lib.Reply{Text: "Done: hello"},
		},

		"A failing request should return a failed reply.": {
			request:   "bad request",
			expReply:  &lib.Reply{Text: `Task failed: fake engine refused "bad request"`},
			expFailed: true,
		},

		"An empty request should fail.": {
			request: "   ",
			expIs:   lib.ErrNotValid,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, lib.Config{
				Fake: lib.FakeConfig{Delay: time.Millisecond, FailPrefix: "bad"},
			})

			reply, err := client.Ask(context.Background(), tc.request)

			if tc.expIs != nil {
				assert.ErrorIs(t, err, tc.expIs)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, reply.ID)
			assert.Equal(t, tc.expReply.Text, reply.Text)
			assert.Equal(t, tc.expFailed, reply.Failed)
			if tc.expFailed {
				assert.Error(t, reply.Err)
			}
		})
	}
}

func TestAskExecutorError(t *testing.T) {
	errBoom := errors.New("boom")
	client := newTestClient(t, lib.Config{
		Executor: lib.ExecutorFunc(func(context.Context, string) (string, error) { return "", errBoom }),
	})

	reply, err := client.Ask(context.Background(), "hello")
	require.NoError(t, err)

	assert.True(t, reply.Failed)
	assert.Equal(t, "Task failed: boom", reply.Text)
	assert.ErrorIs(t, reply.Err, errBoom)
}

func TestAskBusy(t *testing.T) {
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	client := newTestClient(t, lib.Config{
		Executor: lib.ExecutorFunc(func(ctx context.Context, request string) (string, error) {
			once.Do(func() { close(started) })
			<-release
			return "ok " + request, nil
		}),
	})

	var (
		wg       sync.WaitGroup
		reply    *lib.Reply
		replyErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reply, replyErr = client.Ask(context.Background(), "first")
	}()
	<-started

	_, err := client.Ask(context.Background(), "second")
	assert.ErrorIs(t, err, lib.ErrBusy)

	close(release)
	wg.Wait()
	require.NoError(t, replyErr)
	assert.Equal(t, "ok first", reply.Text)

	// Once delivered new requests are accepted again.
	reply, err = client.Ask(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, "ok third", reply.Text)
}

func TestTranscript(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []lib.Message
	)
	client := newTestClient(t, lib.Config{
		Fake: lib.FakeConfig{FailPrefix: "bad"},
		OnMessage: func(m lib.Message) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, m)
		},
	})

	ctx := context.Background()
	_, err := client.Ask(ctx, "one")
	require.NoError(t, err)
	_, err = client.Ask(ctx, "bad two")
	require.NoError(t, err)

	msgs, err := client.Transcript(ctx)
	require.NoError(t, err)

	type msg struct {
		Sequence int
		Sender   lib.Sender
		Text     string
	}
	exp := []msg{
		{Sequence: 1, Sender: lib.SenderUser, Text: "one"},
		{Sequence: 2, Sender: lib.SenderAgent, Text: "Done: one"},
		{Sequence: 3, Sender: lib.SenderUser, Text: "bad two"},
		{Sequence: 4, Sender: lib.SenderAgent, Text: `Task failed: fake engine refused "bad two"`},
	}

	got := make([]msg, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, msg{Sequence: m.Sequence, Sender: m.Sender, Text: m.Text})
		assert.False(t, m.At.IsZero())
	}
	assert.Equal(t, exp, got)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, msgs, observed)
}

func TestClose(t *testing.T) {
	started := make(chan struct{})
	client, err := lib.New(lib.Config{
		Executor: lib.ExecutorFunc(func(ctx context.Context, request string) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}),
	})
	require.NoError(t, err)

	askErr := make(chan error, 1)
	go func() {
		_, err := client.Ask(context.Background(), "hello")
		askErr <- err
	}()
	<-started

	// Closing cancels the running task.
	require.NoError(t, client.Close(context.Background()))
	assert.ErrorIs(t, <-askErr, lib.ErrClosed)

	// A closed client can't be used.
	_, err = client.Ask(context.Background(), "again")
	assert.ErrorIs(t, err, lib.ErrClosed)
	_, err = client.Transcript(context.Background())
	assert.ErrorIs(t, err, lib.ErrClosed)

	// Close is idempotent.
	assert.NoError(t, client.Close(context.Background()))
}
