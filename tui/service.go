package tui

import (
	"fmt"

	logger "github.com/harwoeck/liblog/contract"
)

// pinField and the login fields mirror the buffers of the trusted
// application: the remote side reserves one byte for termination.
var (
	pinField = EntryField{
		Label:     "secret pin",
		Mode:      ModeHidden,
		Type:      TypeNumerical,
		MinLength: 4,
		MaxLength: 7,
	}
	usernameField = EntryField{
		Label:     "Username",
		Mode:      ModeClear,
		Type:      TypeAlphanumerical,
		MinLength: 0,
		MaxLength: 16,
	}
	passwordField = EntryField{
		Label:     "Password",
		Mode:      ModeTemporaryClear,
		Type:      TypeAlphanumerical,
		MinLength: 4,
		MaxLength: 16,
	}
)

// Service offers the single screen dialogs of the trusted UI.
type Service struct {
	display Display
	log     logger.Logger
}

// NewService returns a Service showing its screens on d.
func NewService(d Display, log logger.Logger) *Service {
	return &Service{
		display: d,
		log:     log.Named("tui"),
	}
}

func (s *Service) prompt(screen *Screen) (Button, []string, error) {
	pressed, values, err := show(s.display, 0, screen)
	if err != nil {
		return 0, nil, err
	}
	s.log.Debug("button pressed", logger.NewField("button", pressed.String()))

	if pressed != ButtonValidate {
		return pressed, nil, nil
	}
	for i := range screen.Fields {
		if err := screen.Fields[i].Check(values[i]); err != nil {
			return 0, nil, err
		}
	}
	return pressed, values, nil
}

// ReadPIN asks for a numeric PIN of 4 to 7 digits. ok is false if the user
// cancelled.
func (s *Service) ReadPIN(label string) (pin string, ok bool, err error) {
	pressed, values, err := s.prompt(&Screen{
		Label:   label,
		Buttons: NewButtons(ButtonCancel, ButtonValidate),
		Fields:  []EntryField{pinField},
	})
	if err != nil || pressed != ButtonValidate {
		return "", false, err
	}
	return values[0], true, nil
}

// ReadLogin asks for a username and a password. ok is false if the user
// cancelled.
func (s *Service) ReadLogin(label string) (username, password string, ok bool, err error) {
	pressed, values, err := s.prompt(&Screen{
		Label:   label,
		Buttons: NewButtons(ButtonCancel, ButtonValidate),
		Fields:  []EntryField{usernameField, passwordField},
	})
	if err != nil || pressed != ButtonValidate {
		return "", "", false, err
	}
	return values[0], values[1], true, nil
}

// Message shows label until the user acknowledges it.
func (s *Service) Message(label string) error {
	_, _, err := s.prompt(&Screen{
		Label:   label,
		Buttons: NewButtons(ButtonOK),
	})
	return err
}

// ValidateMessage shows label and reports whether the user accepted it.
func (s *Service) ValidateMessage(label string) (bool, error) {
	pressed, _, err := s.prompt(&Screen{
		Label:   label,
		Buttons: NewButtons(ButtonCancel, ButtonValidate),
	})
	if err != nil {
		return false, err
	}
	return pressed == ButtonValidate, nil
}

// ValidateMessages walks through labels with a Navigator.
func (s *Service) ValidateMessages(labels ...string) (accepted bool, visited []int, err error) {
	accepted, visited, err = NewNavigator(s.display, s.log).Validate(labels)
	if err != nil {
		return false, visited, fmt.Errorf("tui: validate messages: %w", err)
	}
	return accepted, visited, nil
}
