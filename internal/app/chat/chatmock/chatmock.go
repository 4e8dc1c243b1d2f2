// Package chatmock provides testify mocks for the chat package.
package chatmock

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slok/qchat/internal/model"
)

// Surface is a mock of chat.Surface that also implements chat.StallNotifier
// and chat.FailureNotifier.
type Surface struct {
	mock.Mock
}

func (m *Surface) AppendMessage(sender model.Sender, text string) { m.Called(sender, text) }
func (m *Surface) SetBusy(active bool)                            { m.Called(active) }
func (m *Surface) Tick(step int)                                  { m.Called(step) }
func (m *Surface) SetStalled(age time.Duration)                   { m.Called(age) }
func (m *Surface) MarkFailed()                                    { m.Called() }
