package task

// Status classifies a Result.
type Status int

const (
	// StatusSuccessful means the task completed without error.
	StatusSuccessful Status = iota

	// StatusFailed means the body or a before-handler returned an error
	// other than the skip signal.
	StatusFailed

	// StatusSkipped means a before-handler returned the skip signal.
	StatusSkipped
)

// String returns the lowercase status name used in logs and metrics labels.
func (s Status) String() string {
	switch s {
	case StatusSuccessful:
		return "successful"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the outcome of one task execution. It is immutable.
type Result struct {
	task   *Task
	output string
	err    error
}

// NewResult returns a result for t. A nil err means success.
func NewResult(t *Task, output string, err error) *Result {
	return &Result{task: t, output: output, err: err}
}

// Success returns a successful result carrying output.
func Success(t *Task, output string) *Result {
	return &Result{task: t, output: output}
}

// Failure returns a failed result. err must be non-nil.
func Failure(t *Task, output string, err error) *Result {
	return &Result{task: t, output: output, err: err}
}

// Task returns the task that produced the result.
func (r *Result) Task() *Task { return r.task }

// Output returns the captured output text.
func (r *Result) Output() string { return r.output }

// Err returns the failure cause or skip signal, nil on success.
func (r *Result) Err() error { return r.err }

// Status classifies the result.
func (r *Result) Status() Status {
	switch {
	case r.err == nil:
		return StatusSuccessful
	case IsSkip(r.err):
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// Successful reports whether the result carries no error.
func (r *Result) Successful() bool { return r.Status() == StatusSuccessful }

// Failed reports whether the result carries an error that is not a skip.
func (r *Result) Failed() bool { return r.Status() == StatusFailed }

// Skipped reports whether the result carries the skip signal.
func (r *Result) Skipped() bool { return r.Status() == StatusSkipped }

// ResultSet is an ordered collection of results. Filtering returns a new
// set and never modifies the receiver.
type ResultSet struct {
	results []*Result
}

// NewResultSet returns a set holding results in order.
func NewResultSet(results ...*Result) *ResultSet {
	s := &ResultSet{}
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// Add appends r.
func (s *ResultSet) Add(r *Result) *ResultSet {
	s.results = append(s.results, r)
	return s
}

// All returns the results in insertion order.
func (s *ResultSet) All() []*Result {
	out := make([]*Result, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of results.
func (s *ResultSet) Len() int { return len(s.results) }

// Filter returns a new set with the results keep accepts.
func (s *ResultSet) Filter(keep func(*Result) bool) *ResultSet {
	out := &ResultSet{}
	for _, r := range s.results {
		if keep(r) {
			out.results = append(out.results, r)
		}
	}
	return out
}

// Successful returns the successful results.
func (s *ResultSet) Successful() *ResultSet { return s.Filter((*Result).Successful) }

// Failed returns the failed results.
func (s *ResultSet) Failed() *ResultSet { return s.Filter((*Result).Failed) }

// Skipped returns the skipped results.
func (s *ResultSet) Skipped() *ResultSet { return s.Filter((*Result).Skipped) }
