package tui

import (
	logger "github.com/harwoeck/liblog/contract"

	"azoo.dev/utils/xtee/suite"
)

func verdict(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "refused"
}

// NewCases returns the trusted UI cases. They need a person in front of the
// display and are registered only on request.
func NewCases(s *Service) []suite.Case {
	return []suite.Case{
		{
			ID:    "1001",
			Title: "Trusted UI Read PIN",
			Run: func(t *suite.T) {
				t.Subcase("read pin", func() error {
					pin, ok, err := s.ReadPIN("test read pin")
					if err != nil {
						return err
					}
					t.Logger().Info("got pin",
						logger.NewField("validated", ok),
						logger.NewField("len", len(pin)))
					return nil
				})
			},
		},
		{
			ID:    "1002",
			Title: "Trusted UI Read login",
			Run: func(t *suite.T) {
				t.Subcase("read login", func() error {
					username, password, ok, err := s.ReadLogin("Login to some service")
					if err != nil {
						return err
					}
					t.Logger().Info("got login",
						logger.NewField("validated", ok),
						logger.NewField("username", username),
						logger.NewField("password_len", len(password)))
					return nil
				})
			},
		},
		{
			ID:    "1003",
			Title: "Trusted UI message",
			Run: func(t *suite.T) {
				t.Subcase("message", func() error {
					return s.Message("A message you can only accept")
				})
			},
		},
		{
			ID:    "1004",
			Title: "Trusted UI validate message",
			Run: func(t *suite.T) {
				t.Subcase("validate message", func() error {
					accepted, err := s.ValidateMessage("A message you can accept or refuse")
					if err != nil {
						return err
					}
					t.Logger().Info("message "+verdict(accepted), logger.NewField("accepted", accepted))
					return nil
				})
			},
		},
		{
			ID:    "1005",
			Title: "Trusted UI validate messages",
			Run: func(t *suite.T) {
				t.Subcase("validate messages", func() error {
					accepted, visited, err := s.ValidateMessages("Message 1", "Message 2", "Message 3")
					if err != nil {
						return err
					}
					t.Logger().Info("message "+verdict(accepted),
						logger.NewField("accepted", accepted),
						logger.NewField("visited", visited))
					return nil
				})
			},
		},
	}
}
