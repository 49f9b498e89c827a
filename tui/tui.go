// Package tui drives screens of a trusted user interface that is rendered
// by a remote party. Every screen requests a set of buttons and the remote
// side is restricted to answer with one of them. An answer outside of that
// set is a protocol violation and halts the caller.
package tui

import (
	"errors"
	"fmt"
	"strings"
)

// Button is a button of a trusted UI screen.
type Button int

const (
	ButtonCorrection Button = iota
	ButtonOK
	ButtonCancel
	ButtonValidate
	ButtonPrevious
	ButtonNext
)

var buttonNames = map[Button]string{
	ButtonCorrection: "correction",
	ButtonOK:         "ok",
	ButtonCancel:     "cancel",
	ButtonValidate:   "validate",
	ButtonPrevious:   "previous",
	ButtonNext:       "next",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// ParseButton returns the button called name.
func ParseButton(name string) (Button, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for b, n := range buttonNames {
		if n == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("tui: unknown button %q", name)
}

// Buttons is a set of buttons.
type Buttons uint8

// NewButtons returns the set containing bs.
func NewButtons(bs ...Button) Buttons {
	var set Buttons
	for _, b := range bs {
		set |= 1 << uint(b)
	}
	return set
}

// Has reports whether b is in the set.
func (s Buttons) Has(b Button) bool {
	return b >= ButtonCorrection && b <= ButtonNext && s&(1<<uint(b)) != 0
}

// List returns the buttons of the set in display order.
func (s Buttons) List() []Button {
	var out []Button
	for b := ButtonCorrection; b <= ButtonNext; b++ {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s Buttons) String() string {
	names := make([]string, 0, 6)
	for _, b := range s.List() {
		names = append(names, b.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// EntryMode controls how the remote side echoes typed characters.
type EntryMode int

const (
	ModeHidden EntryMode = iota
	ModeClear
	ModeTemporaryClear
)

// EntryType restricts the characters of an entry field.
type EntryType int

const (
	TypeAlphanumerical EntryType = iota
	TypeNumerical
)

// EntryField is an input field shown on a screen.
type EntryField struct {
	Label     string
	Mode      EntryMode
	Type      EntryType
	MinLength int
	MaxLength int
}

// Check verifies that value satisfies the constraints of the field.
func (f *EntryField) Check(value string) error {
	if len(value) < f.MinLength || len(value) > f.MaxLength {
		return fmt.Errorf("tui: %q has %d characters, expected %d to %d", f.Label, len(value), f.MinLength, f.MaxLength)
	}
	if f.Type == TypeNumerical {
		for _, r := range value {
			if r < '0' || r > '9' {
				return fmt.Errorf("tui: %q accepts digits only", f.Label)
			}
		}
	}
	return nil
}

// Screen describes one screen to display.
type Screen struct {
	// Label is the text shown on the screen.
	Label string
	// Buttons are the buttons the remote side may answer with.
	Buttons Buttons
	// Fields are the entry fields of the screen, if any.
	Fields []EntryField
}

// Display renders screens on the remote side. DisplayScreen blocks until a
// button is pressed and returns it together with one value per entry field.
type Display interface {
	DisplayScreen(screen *Screen) (pressed Button, values []string, err error)
}

// ErrProtocolViolation is matched by errors.Is for every ViolationError.
var ErrProtocolViolation = errors.New("tui: protocol violation")

// ViolationError reports an answer the remote side was not allowed to give.
// It is fatal.
type ViolationError struct {
	Screen int
	Button Button
	Reason string
}

func (e *ViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tui: protocol violation on screen %d: %s", e.Screen, e.Reason)
	}
	return fmt.Sprintf("tui: protocol violation on screen %d: %s was not requested", e.Screen, e.Button)
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// Fatal marks the error as unrecoverable.
func (e *ViolationError) Fatal() bool {
	return true
}

// show displays screen and checks the answer against the contract of the
// screen. k is the index reported in violations.
func show(d Display, k int, screen *Screen) (Button, []string, error) {
	pressed, values, err := d.DisplayScreen(screen)
	if err != nil {
		return 0, nil, fmt.Errorf("tui: display of screen %d failed: %w", k, err)
	}
	if !screen.Buttons.Has(pressed) {
		return 0, nil, &ViolationError{Screen: k, Button: pressed}
	}
	if pressed == ButtonValidate && len(values) != len(screen.Fields) {
		return 0, nil, &ViolationError{
			Screen: k,
			Button: pressed,
			Reason: fmt.Sprintf("%d values returned for %d fields", len(values), len(screen.Fields)),
		}
	}
	return pressed, values, nil
}
