package host

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TerminalUI implements UI on a terminal. Scanner output goes to out verbatim;
// prompts and notifications go to msg so out can be redirected to a file.
type TerminalUI struct {
	in  *bufio.Reader
	out io.Writer
	msg io.Writer

	mu         sync.Mutex
	promptSty  lipgloss.Style
	infoStyle  lipgloss.Style
	errorStyle lipgloss.Style
}

// NewTerminalUI creates a TerminalUI
func NewTerminalUI(in io.Reader, out, msg io.Writer) *TerminalUI {
	renderer := lipgloss.NewRenderer(msg)
	return &TerminalUI{
		in:         bufio.NewReader(in),
		out:        out,
		msg:        msg,
		promptSty:  renderer.NewStyle().Bold(true),
		infoStyle:  renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		errorStyle: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Prompt reads one line; an empty answer selects defaultValue and EOF cancels
func (t *TerminalUI) Prompt(label, defaultValue string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if defaultValue != "" {
		fmt.Fprintf(t.msg, "%s [%s]: ", t.promptSty.Render(label), defaultValue)
	} else {
		fmt.Fprintf(t.msg, "%s: ", t.promptSty.Render(label))
	}

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(t.msg)
		return "", false
	}

	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return defaultValue, true
	}
	return line, true
}

// AppendOutput writes scanner output verbatim
func (t *TerminalUI) AppendOutput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, text)
}

// ShowInfo prints a success notification
func (t *TerminalUI) ShowInfo(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.msg, t.infoStyle.Render(Title+": "+message))
}

// ShowError prints a failure notification
func (t *TerminalUI) ShowError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.msg, t.errorStyle.Render(Title+": "+message))
}
