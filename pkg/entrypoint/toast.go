package entrypoint

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// SavedToast is the acknowledgment shown after a shortcut save.
const SavedToast = "Saved to reading list"

// Toaster shows a short acknowledgment on the active page. It is fire and
// forget: callers only log its errors.
type Toaster interface {
	Show(ctx context.Context, msg string) error
}

var toastStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#202124")).
	Padding(0, 2)

// TerminalToast prints the acknowledgment to Out, or stderr when Out is nil.
type TerminalToast struct {
	Out io.Writer
}

func (t TerminalToast) Show(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintln(out, toastStyle.Render(msg))
	return err
}
