package tui

import (
	"fmt"

	logger "github.com/harwoeck/liblog/contract"
)

// MaxScreens is the largest number of screens a Navigator walks through.
const MaxScreens = 3

// Navigator walks the user through a linear sequence of screens. The user
// moves with next and previous and ends the walk with validate or cancel.
type Navigator struct {
	display Display
	log     logger.Logger
}

// NewNavigator returns a Navigator showing its screens on d.
func NewNavigator(d Display, log logger.Logger) *Navigator {
	return &Navigator{
		display: d,
		log:     log.Named("navigator"),
	}
}

// buttonsOf returns the buttons requested on screen k of last+1 screens.
func buttonsOf(k, last int) Buttons {
	switch {
	case last == 0:
		return NewButtons(ButtonCancel, ButtonValidate)
	case k == 0:
		return NewButtons(ButtonCancel, ButtonNext)
	case k < last:
		return NewButtons(ButtonPrevious, ButtonCancel, ButtonNext)
	default:
		return NewButtons(ButtonPrevious, ButtonCancel, ButtonValidate)
	}
}

// Validate shows labels one screen each, starting at the first. It returns
// whether the user validated and the indices of the screens in the order
// they were shown. A button the current screen did not request is returned
// as a *ViolationError.
func (n *Navigator) Validate(labels []string) (accepted bool, visited []int, err error) {
	if len(labels) == 0 || len(labels) > MaxScreens {
		return false, nil, fmt.Errorf("tui: %d screens requested, expected 1 to %d", len(labels), MaxScreens)
	}

	last := len(labels) - 1
	k := 0
	for {
		visited = append(visited, k)
		screen := &Screen{
			Label:   labels[k],
			Buttons: buttonsOf(k, last),
		}

		pressed, _, err := show(n.display, k, screen)
		if err != nil {
			return false, visited, err
		}
		n.log.Debug("button pressed",
			logger.NewField("screen", k),
			logger.NewField("button", pressed.String()))

		switch pressed {
		case ButtonValidate:
			return true, visited, nil
		case ButtonCancel:
			return false, visited, nil
		case ButtonNext:
			k++
		case ButtonPrevious:
			k--
		default:
			return false, visited, &ViolationError{Screen: k, Button: pressed}
		}
	}
}
