package main

import (
	"errors"

	logger "github.com/harwoeck/liblog/contract"

	"azoo.dev/utils/xtee/kdf"
	"azoo.dev/utils/xtee/suite"
	"azoo.dev/utils/xtee/tee"
	"azoo.dev/utils/xtee/tui"
	"azoo.dev/utils/xtee/tui/console"
)

// selfTestCase runs the key manager self test of s. Environments without
// one pass with a note in the log.
func selfTestCase(s tee.Session) suite.Case {
	return suite.Case{
		ID:          "10002",
		Title:       "Secure Storage Key Manager API Self Test",
		Description: "Runs the self test of the key manager backing secure storage",
		Requirement: "Secure Storage Key Manager API",
		Run: func(t *suite.T) {
			t.Subcase("key manager self test", func() error {
				st, ok := s.(tee.SelfTester)
				if !ok {
					t.Logger().Info("ignored: environment offers no key manager self test")
					return nil
				}
				return st.SelfTest()
			})
		},
	}
}

// registerCases registers every case of xtee. s may be nil when the cases
// are only listed.
func (a *app) registerCases(r *suite.Registry, s tee.Session) error {
	cases := []suite.Case{
		kdf.NewCase(s, kdf.NewDriver(a.log), kdf.Options{
			IncludeSlow: a.v.GetBool("suite.slow"),
		}),
		selfTestCase(s),
	}

	if a.v.GetBool("suite.tui") {
		svc := tui.NewService(console.New(a.in, a.out), a.log)
		cases = append(cases, tui.NewCases(svc)...)
	}

	var errs []error
	for _, c := range cases {
		if err := r.Register(c); err != nil {
			a.log.Warn("case not registered", logger.NewField("case", c.ID), logger.NewField("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
