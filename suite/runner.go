package suite

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	logger "github.com/harwoeck/liblog/contract"
	"gopkg.in/yaml.v3"
)

// IsFatal reports whether err, or any error it wraps, declares itself fatal
// through a Fatal() bool method. Fatal errors halt the whole run.
func IsFatal(err error) bool {
	var f interface{ Fatal() bool }
	return errors.As(err, &f) && f.Fatal()
}

// T is handed to a running case.
type T struct {
	c        *Case
	log      logger.Logger
	reporter *Reporter
	result   *CaseResult
	halt     error
}

// Logger returns the logger of the running case.
func (t *T) Logger() logger.Logger {
	return t.log
}

// Subcase runs fn as the subcase name. The outcome is recorded and false is
// returned if fn failed. A panic in fn fails the subcase. Once the run is
// halted fn is not called anymore.
func (t *T) Subcase(name string, fn func() error) bool {
	if t.halt != nil {
		return false
	}

	t.reporter.Begin(t.c.ID, name)
	start := time.Now()
	err := protect(name, fn)
	res := t.reporter.End(t.c.ID, err, time.Since(start))

	t.result.Subcases = append(t.result.Subcases, res)
	if err != nil {
		t.result.Passed = false
		if IsFatal(err) {
			t.halt = err
		}
	}
	return err == nil
}

func protect(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("suite: subcase %q panicked: %v", name, r)
		}
	}()
	return fn()
}

// Error records a case-level failure outside of any subcase.
func (t *T) Error(err error) {
	if err == nil {
		return
	}
	t.result.Passed = false
	t.result.Errors = append(t.result.Errors, err.Error())
	t.log.Warn("case error", logger.NewField("error", err))

	if IsFatal(err) && t.halt == nil {
		t.halt = err
	}
}

// Errorf is like Error but formats the error.
func (t *T) Errorf(format string, args ...interface{}) {
	t.Error(fmt.Errorf(format, args...))
}

// Failed reports whether the case has failed so far.
func (t *T) Failed() bool {
	return !t.result.Passed
}

// Halted reports whether a fatal error stopped the run.
func (t *T) Halted() bool {
	return t.halt != nil
}

// CaseResult is the recorded outcome of one case.
type CaseResult struct {
	ID       string          `yaml:"id"`
	Title    string          `yaml:"title"`
	Passed   bool            `yaml:"passed"`
	Errors   []string        `yaml:"errors,omitempty"`
	Subcases []SubcaseResult `yaml:"subcases,omitempty"`
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	RunID          string        `yaml:"run_id"`
	Started        time.Time     `yaml:"started"`
	Duration       time.Duration `yaml:"duration"`
	Cases          []CaseResult  `yaml:"cases"`
	CasesPassed    int           `yaml:"cases_passed"`
	CasesFailed    int           `yaml:"cases_failed"`
	SubcasesPassed int           `yaml:"subcases_passed"`
	SubcasesFailed int           `yaml:"subcases_failed"`
	Halted         bool          `yaml:"halted"`
	HaltReason     string        `yaml:"halt_reason,omitempty"`
}

// Passed reports whether every case passed and the run was not halted.
func (s *Summary) Passed() bool {
	return s.CasesFailed == 0 && !s.Halted
}

// WriteYAML encodes the summary as YAML to w.
func (s *Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("suite: failed to encode summary: %w", err)
	}
	return enc.Close()
}

// Runner runs cases sequentially.
type Runner struct {
	log logger.Logger
}

// NewRunner returns a Runner logging to log.
func NewRunner(log logger.Logger) *Runner {
	return &Runner{log: log.Named("suite")}
}

// Run executes cases in order and returns the aggregate outcome. Every case
// runs regardless of earlier failures unless a fatal error halts the run.
func (r *Runner) Run(cases []Case) *Summary {
	runID := uuid.New().String()
	log := r.log.Named(runID)
	reporter := NewReporter(log)

	s := &Summary{
		RunID:   runID,
		Started: time.Now().UTC(),
	}
	log.Info("starting run", logger.NewField("cases", len(cases)))

	for i := range cases {
		c := &cases[i]
		t := &T{
			c:        c,
			log:      log.Named(c.ID),
			reporter: reporter,
			result: &CaseResult{
				ID:     c.ID,
				Title:  c.Title,
				Passed: true,
			},
		}

		log.Info("begin case",
			logger.NewField("case", c.ID),
			logger.NewField("title", c.Title))
		c.Run(t)
		log.Info("end case",
			logger.NewField("case", c.ID),
			logger.NewField("passed", t.result.Passed))

		s.Cases = append(s.Cases, *t.result)
		if t.result.Passed {
			s.CasesPassed++
		} else {
			s.CasesFailed++
		}

		if t.halt != nil {
			s.Halted = true
			s.HaltReason = t.halt.Error()
			log.Warn("run halted", logger.NewField("case", c.ID), logger.NewField("error", t.halt))
			break
		}
	}

	s.SubcasesPassed = reporter.Passed()
	s.SubcasesFailed = reporter.Failed()
	s.Duration = time.Since(s.Started)

	log.Info("finished run",
		logger.NewField("cases_passed", s.CasesPassed),
		logger.NewField("cases_failed", s.CasesFailed),
		logger.NewField("subcases_passed", s.SubcasesPassed),
		logger.NewField("subcases_failed", s.SubcasesFailed),
		logger.NewField("halted", s.Halted))
	return s
}
