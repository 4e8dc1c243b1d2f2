package printer

import (
	"fmt"
	"io"
	"time"

	"github.com/slok/qchat/internal/model"
)

// Surface is a line based conversation surface for non interactive terminals.
type Surface struct {
	out    io.Writer
	status io.Writer
	plain  bool
}

// NewSurface returns a new line surface. Messages are written to out, busy
// and stall notices to status. In plain mode only the agent text is written.
func NewSurface(out, status io.Writer, plain bool) *Surface {
	if status == nil {
		status = io.Discard
	}
	return &Surface{out: out, status: status, plain: plain}
}

func (s *Surface) AppendMessage(sender model.Sender, text string) {
	if s.plain {
		if sender == model.SenderAgent {
			fmt.Fprintln(s.out, text)
		}
		return
	}
	fmt.Fprintf(s.out, "%s: %s\n", sender.DisplayName(), text)
}

func (s *Surface) SetBusy(active bool) {
	if active {
		fmt.Fprintln(s.status, "Working...")
	}
}

// Tick is ignored, lines can't be animated.
func (s *Surface) Tick(step int) {}

func (s *Surface) SetStalled(age time.Duration) {
	if age > 0 {
		fmt.Fprintf(s.status, "Still working after %s...\n", FormatElapsed(age))
	}
}
