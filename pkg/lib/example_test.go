package lib_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/qchat/pkg/lib"
	liblog "github.com/slok/qchat/pkg/lib/log"
)

// This example shows how to ask the fake engine, useful for testing.
func Example_testing() {
	ctx := context.Background()

	client, err := lib.New(lib.Config{Engine: lib.EngineFake})
	if err != nil {
		panic(err)
	}
	defer client.Close(ctx)

	reply, err := client.Ask(ctx, "hello")
	if err != nil {
		panic(err)
	}

	fmt.Println(reply.Text)

	// Output:
	// Done: hello
}

// This example shows how to plug a custom engine and read the conversation.
func Example_executor() {
	ctx := context.Background()

	client, err := lib.New(lib.Config{
		Executor: lib.ExecutorFunc(func(ctx context.Context, request string) (string, error) {
			return strings.ToUpper(request), nil
		}),
		Logger: liblog.Noop,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close(ctx)

	for _, req := range []string{"hi", "bye"} {
		if _, err := client.Ask(ctx, req); err != nil {
			panic(err)
		}
	}

	msgs, err := client.Transcript(ctx)
	if err != nil {
		panic(err)
	}
	for _, m := range msgs {
		fmt.Printf("[%d] %s: %s\n", m.Sequence, m.Sender, m.Text)
	}

	// Output:
	// [1] user: hi
	// [2] agent: HI
	// [3] user: bye
	// [4] agent: BYE
}
