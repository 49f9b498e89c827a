package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	logger "github.com/harwoeck/liblog/contract"
	"github.com/spf13/cobra"

	"azoo.dev/utils/xtee/suite"
	"azoo.dev/utils/xtee/tee"
	"azoo.dev/utils/xtee/tee/hsm"
	"azoo.dev/utils/xtee/tee/soft"
)

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the registered cases against a secure environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := s.Close(); closeErr != nil {
					a.log.Warn("close of session failed", logger.NewField("error", closeErr))
					if err == nil {
						err = fmt.Errorf("xtee: %w", closeErr)
					}
				}
			}()

			r := suite.NewRegistry()
			if err := a.registerCases(r, s); err != nil {
				return err
			}
			cases, err := r.Select(a.v.GetStringSlice("suite.cases")...)
			if err != nil {
				return err
			}

			summary := suite.NewRunner(a.log).Run(cases)
			a.printSummary(summary)

			if path := a.v.GetString("report.yaml"); path != "" {
				if err := writeReport(path, summary); err != nil {
					return err
				}
			}

			switch {
			case summary.Halted:
				return &exitError{code: exitHalted}
			case !summary.Passed():
				return &exitError{code: exitFailed}
			}
			return nil
		},
	}
}

func (a *app) openSession() (tee.Session, error) {
	switch backend := strings.ToLower(a.v.GetString("backend")); backend {
	case "soft":
		return soft.New(soft.DefaultConfig(), a.log), nil
	case "hsm":
		return hsm.New(&hsm.Config{
			Module:  a.v.GetString("hsm.module"),
			Label:   a.v.GetString("hsm.label"),
			UserPin: a.v.GetString("hsm.user_pin"),
		}, a.log)
	default:
		return nil, fmt.Errorf("xtee: unsupported backend %q. Supported backends: soft, hsm", backend)
	}
}

func verdict(passed bool) string {
	if passed {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}

func (a *app) printSummary(s *suite.Summary) {
	for _, c := range s.Cases {
		fmt.Fprintf(a.out, "%s %s %s\n", verdict(c.Passed), c.ID, c.Title)
		for _, sc := range c.Subcases {
			if !sc.Passed {
				fmt.Fprintf(a.out, "     %s: %s\n", sc.Name, sc.Error)
			}
		}
		for _, e := range c.Errors {
			fmt.Fprintf(a.out, "     %s\n", e)
		}
	}

	fmt.Fprintf(a.out, "\ncases: %d passed, %d failed\n", s.CasesPassed, s.CasesFailed)
	fmt.Fprintf(a.out, "subcases: %d passed, %d failed\n", s.SubcasesPassed, s.SubcasesFailed)
	if s.Halted {
		fmt.Fprintf(a.out, "%s %s\n", failStyle.Render("HALTED"), s.HaltReason)
	}
}

func writeReport(path string, s *suite.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("xtee: failed to create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("xtee: failed to close report: %w", closeErr)
		}
	}()

	return s.WriteYAML(f)
}
