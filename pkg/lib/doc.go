// Package lib provides a Go SDK to talk with a qchat task engine programmatically.
//
// A [Client] owns the same machinery as the qchat CLI: a dedicated worker
// thread that runs the engine, a single interactive thread that owns the
// conversation, and the bridge that hands tasks and replies between them.
// Only one task can be in flight at a time.
//
// # Quick Start
//
//	client, err := lib.New(lib.Config{Engine: lib.EngineFake})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	reply, err := client.Ask(ctx, "hello")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(reply.Text)
//
// # Engines
//
//   - [EngineFake]: echoes the request after a delay. Useful for tests.
//   - [EngineOpenAI]: an OpenAI compatible chat completion API.
//   - [EngineExec]: a local command that receives the request on stdin.
//
// A custom engine can be plugged with [Config].Executor, it takes precedence
// over [Config].Engine.
//
// # Errors
//
// Errors returned by the client can be checked with [errors.Is] against
// [ErrNotValid], [ErrBusy] and [ErrClosed]. A task that fails inside the engine
// is not an error of [Client.Ask], the returned [Reply] is marked as failed.
package lib
