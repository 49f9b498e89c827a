package tui

import (
	"errors"
	"testing"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"azoo.dev/utils/xtee/suite"
)

type mockDisplay struct {
	mock.Mock
	shown []*Screen
}

func (m *mockDisplay) DisplayScreen(screen *Screen) (Button, []string, error) {
	m.shown = append(m.shown, screen)
	args := m.Called(screen.Label)
	var values []string
	if v := args.Get(1); v != nil {
		values = v.([]string)
	}
	return args.Get(0).(Button), values, args.Error(2)
}

func (m *mockDisplay) press(label string, b Button, values ...string) *mock.Call {
	var v interface{}
	if values != nil {
		v = values
	}
	return m.On("DisplayScreen", label).Return(b, v, nil).Once()
}

func newNavigator(d Display) *Navigator {
	return NewNavigator(d, logger.MustNewStd())
}

func TestNavigator_ForwardBackValidate(t *testing.T) {
	d := &mockDisplay{}
	d.press("m0", ButtonNext)
	d.press("m1", ButtonPrevious)
	d.press("m0", ButtonNext)
	d.press("m1", ButtonNext)
	d.press("m2", ButtonValidate)

	accepted, visited, err := newNavigator(d).Validate([]string{"m0", "m1", "m2"})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, []int{0, 1, 0, 1, 2}, visited)
	d.AssertExpectations(t)

	require.Len(t, d.shown, 5)
	assert.Equal(t, NewButtons(ButtonCancel, ButtonNext), d.shown[0].Buttons)
	assert.Equal(t, NewButtons(ButtonPrevious, ButtonCancel, ButtonNext), d.shown[1].Buttons)
	assert.Equal(t, NewButtons(ButtonPrevious, ButtonCancel, ButtonValidate), d.shown[4].Buttons)
}

func TestNavigator_Cancel(t *testing.T) {
	d := &mockDisplay{}
	d.press("m0", ButtonNext)
	d.press("m1", ButtonCancel)

	accepted, visited, err := newNavigator(d).Validate([]string{"m0", "m1", "m2"})
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, []int{0, 1}, visited)
}

func TestNavigator_SingleScreen(t *testing.T) {
	d := &mockDisplay{}
	d.press("only", ButtonValidate)

	accepted, visited, err := newNavigator(d).Validate([]string{"only"})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, []int{0}, visited)
	assert.Equal(t, NewButtons(ButtonCancel, ButtonValidate), d.shown[0].Buttons)
}

func TestNavigator_Violations(t *testing.T) {
	tests := []struct {
		name    string
		presses []Button
		screen  int
	}{
		{"previous on first screen", []Button{ButtonPrevious}, 0},
		{"validate on first screen", []Button{ButtonValidate}, 0},
		{"next on last screen", []Button{ButtonNext, ButtonNext, ButtonNext}, 2},
		{"ok on middle screen", []Button{ButtonNext, ButtonOK}, 1},
		{"correction", []Button{ButtonCorrection}, 0},
	}

	labels := []string{"m0", "m1", "m2"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDisplay{}
			k := 0
			for _, b := range tt.presses {
				d.press(labels[k], b)
				if b == ButtonNext {
					k++
				}
			}

			accepted, visited, err := newNavigator(d).Validate(labels)
			require.Error(t, err)
			assert.False(t, accepted)
			assert.Equal(t, tt.screen, visited[len(visited)-1])

			assert.True(t, errors.Is(err, ErrProtocolViolation))
			assert.True(t, suite.IsFatal(err))

			var violation *ViolationError
			require.True(t, errors.As(err, &violation))
			assert.Equal(t, tt.screen, violation.Screen)
			assert.Equal(t, tt.presses[len(tt.presses)-1], violation.Button)
		})
	}
}

func TestNavigator_ScreenCount(t *testing.T) {
	_, _, err := newNavigator(&mockDisplay{}).Validate(nil)
	assert.Error(t, err)
	_, _, err = newNavigator(&mockDisplay{}).Validate([]string{"1", "2", "3", "4"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrProtocolViolation))
}

func TestNavigator_DisplayError(t *testing.T) {
	d := &mockDisplay{}
	d.On("DisplayScreen", "m0").Return(ButtonCancel, nil, errors.New("display busy")).Once()

	_, _, err := newNavigator(d).Validate([]string{"m0", "m1"})
	require.Error(t, err)
	assert.False(t, suite.IsFatal(err))
}

func newService(d Display) *Service {
	return NewService(d, logger.MustNewStd())
}

func TestService_ReadPIN(t *testing.T) {
	d := &mockDisplay{}
	d.press("pin", ButtonValidate, "1234")

	pin, ok, err := newService(d).ReadPIN("pin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234", pin)

	require.Len(t, d.shown[0].Fields, 1)
	assert.Equal(t, ModeHidden, d.shown[0].Fields[0].Mode)
	assert.Equal(t, TypeNumerical, d.shown[0].Fields[0].Type)
}

func TestService_ReadPIN_Cancel(t *testing.T) {
	d := &mockDisplay{}
	d.press("pin", ButtonCancel)

	pin, ok, err := newService(d).ReadPIN("pin")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pin)
}

func TestService_ReadPIN_Invalid(t *testing.T) {
	for _, value := range []string{"123", "12a4", "12345678"} {
		d := &mockDisplay{}
		d.press("pin", ButtonValidate, value)

		_, _, err := newService(d).ReadPIN("pin")
		assert.Error(t, err, value)
		assert.False(t, suite.IsFatal(err), value)
	}
}

func TestService_ReadLogin(t *testing.T) {
	d := &mockDisplay{}
	d.press("login", ButtonValidate, "alice", "hunter22")

	username, password, ok, err := newService(d).ReadLogin("login")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
	assert.Equal(t, "hunter22", password)
}

func TestService_ReadLogin_MissingValue(t *testing.T) {
	d := &mockDisplay{}
	d.press("login", ButtonValidate, "alice")

	_, _, _, err := newService(d).ReadLogin("login")
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestService_Message(t *testing.T) {
	d := &mockDisplay{}
	d.press("msg", ButtonOK)
	assert.NoError(t, newService(d).Message("msg"))

	d = &mockDisplay{}
	d.press("msg", ButtonCancel)
	assert.ErrorIs(t, newService(d).Message("msg"), ErrProtocolViolation)
}

func TestService_ValidateMessage(t *testing.T) {
	d := &mockDisplay{}
	d.press("msg", ButtonValidate)
	d.press("msg", ButtonCancel)
	s := newService(d)

	accepted, err := s.ValidateMessage("msg")
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = s.ValidateMessage("msg")
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestCases_HaltOnViolation(t *testing.T) {
	d := &mockDisplay{}
	d.press("test read pin", ButtonValidate, "4711")
	d.press("Login to some service", ButtonCancel)
	d.press("A message you can only accept", ButtonOK)
	d.press("A message you can accept or refuse", ButtonValidate)
	d.press("Message 1", ButtonPrevious)

	summary := suite.NewRunner(logger.MustNewStd()).Run(NewCases(newService(d)))
	d.AssertExpectations(t)

	assert.True(t, summary.Halted)
	assert.Equal(t, 4, summary.CasesPassed)
	assert.Equal(t, 1, summary.CasesFailed)
	assert.Equal(t, "1005", summary.Cases[4].ID)
}

func TestButtons(t *testing.T) {
	set := NewButtons(ButtonNext, ButtonCancel)
	assert.True(t, set.Has(ButtonNext))
	assert.False(t, set.Has(ButtonValidate))
	assert.False(t, set.Has(Button(42)))
	assert.Equal(t, []Button{ButtonCancel, ButtonNext}, set.List())
	assert.Equal(t, "{cancel, next}", set.String())

	b, err := ParseButton(" Validate ")
	require.NoError(t, err)
	assert.Equal(t, ButtonValidate, b)
	_, err = ParseButton("maybe")
	assert.Error(t, err)
}
