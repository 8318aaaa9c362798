package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/gaurav-prasanna/chatexport/core/export"
	"github.com/gaurav-prasanna/chatexport/core/progress"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E7D32")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B1FA2"))
)

// newStatusLine returns a listener that keeps a single progress line
// updated on w.
func newStatusLine(w io.Writer) progress.Listener {
	return progress.Func(func(_ context.Context, ev progress.Event) error {
		_, err := fmt.Fprintf(w, "\r%s %s",
			accentStyle.Render("⟳"),
			mutedStyle.Render(fmt.Sprintf("collected %s turns", humanize.Comma(int64(ev.Count)))))
		return err
	})
}

// printResult writes a human readable summary of res.
func printResult(w io.Writer, res export.Result) {
	// End the progress line.
	fmt.Fprintln(w)
	if !res.Success {
		fmt.Fprintln(w, errorStyle.Render("✗ "+res.Error))
		return
	}
	fmt.Fprintf(w, "%s %s\n",
		successStyle.Render("✓ Exported"),
		fmt.Sprintf("%d messages", res.MessageCount))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Written:"), res.Path)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Size:"), humanize.Bytes(uint64(res.Bytes)))
}
