package suite

import (
	"time"

	logger "github.com/harwoeck/liblog/contract"
)

// SubcaseResult is the recorded outcome of one subcase.
type SubcaseResult struct {
	Name     string        `yaml:"name"`
	Passed   bool          `yaml:"passed"`
	Error    string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// Reporter brackets subcases with begin and end markers and keeps the
// suite-level counters.
type Reporter struct {
	log    logger.Logger
	passed int
	failed int
	open   string
}

// NewReporter returns a Reporter logging to log.
func NewReporter(log logger.Logger) *Reporter {
	return &Reporter{log: log}
}

// Begin marks the start of subcase name of case caseID.
func (r *Reporter) Begin(caseID, name string) {
	r.open = name
	r.log.Debug("begin subcase",
		logger.NewField("case", caseID),
		logger.NewField("subcase", name))
}

// End marks the end of the currently open subcase and records its outcome.
func (r *Reporter) End(caseID string, err error, took time.Duration) SubcaseResult {
	res := SubcaseResult{
		Name:     r.open,
		Passed:   err == nil,
		Duration: took,
	}
	r.open = ""

	if err != nil {
		res.Error = err.Error()
		r.failed++
		r.log.Warn("subcase failed",
			logger.NewField("case", caseID),
			logger.NewField("subcase", res.Name),
			logger.NewField("duration", took),
			logger.NewField("error", err))
		return res
	}

	r.passed++
	r.log.Info("subcase passed",
		logger.NewField("case", caseID),
		logger.NewField("subcase", res.Name),
		logger.NewField("duration", took))
	return res
}

// Passed returns the number of subcases that passed so far.
func (r *Reporter) Passed() int { return r.passed }

// Failed returns the number of subcases that failed so far.
func (r *Reporter) Failed() int { return r.failed }
