// Package console renders trusted UI screens on a terminal. Buttons and
// entry field values are read line by line from an input stream.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"azoo.dev/utils/xtee/tui"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)
	labelStyle = lipgloss.NewStyle().
			Bold(true)
	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 2)
)

// Display is a tui.Display on a terminal. It only returns buttons requested
// by the screen; other input is rejected and asked for again.
type Display struct {
	in  *bufio.Reader
	out io.Writer
}

var _ tui.Display = (*Display)(nil)

// New returns a Display reading from in and rendering to out.
func New(in io.Reader, out io.Writer) *Display {
	return &Display{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Render returns the rendered screen.
func Render(screen *tui.Screen) string {
	rows := []string{labelStyle.Render(screen.Label)}

	for _, f := range screen.Fields {
		mode := "clear"
		switch f.Mode {
		case tui.ModeHidden:
			mode = "hidden"
		case tui.ModeTemporaryClear:
			mode = "temporary clear"
		}
		rows = append(rows, fieldStyle.Render(fmt.Sprintf("%s (%s, %d-%d characters)", f.Label, mode, f.MinLength, f.MaxLength)))
	}

	var buttons []string
	for _, b := range screen.Buttons.List() {
		buttons = append(buttons, buttonStyle.Render(b.String()))
	}
	rows = append(rows, "", lipgloss.JoinHorizontal(lipgloss.Center, buttons...))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d *Display) readLine() (string, error) {
	line, err := d.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *Display) DisplayScreen(screen *tui.Screen) (tui.Button, []string, error) {
	if _, err := fmt.Fprintln(d.out, Render(screen)); err != nil {
		return 0, nil, fmt.Errorf("console: failed to render screen: %w", err)
	}

	values := make([]string, 0, len(screen.Fields))
	for _, f := range screen.Fields {
		if _, err := fmt.Fprintf(d.out, "%s: ", f.Label); err != nil {
			return 0, nil, fmt.Errorf("console: failed to prompt: %w", err)
		}
		v, err := d.readLine()
		if err != nil {
			return 0, nil, fmt.Errorf("console: failed to read %q: %w", f.Label, err)
		}
		values = append(values, v)
	}

	for {
		if _, err := fmt.Fprintf(d.out, "button %s: ", screen.Buttons); err != nil {
			return 0, nil, fmt.Errorf("console: failed to prompt: %w", err)
		}
		line, err := d.readLine()
		if err != nil {
			return 0, nil, fmt.Errorf("console: failed to read button: %w", err)
		}

		b, err := tui.ParseButton(line)
		if err == nil && screen.Buttons.Has(b) {
			return b, values, nil
		}
		fmt.Fprintf(d.out, "%q is not one of %s\n", line, screen.Buttons)
	}
}
