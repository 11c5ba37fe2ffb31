package jobtest

import (
	"slices"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// Noun words the failure messages for one kind of count.
type Noun struct {
	Singular string
	Plural   string
	Verb     string
}

var (
	EnqueuedJobs  = Noun{Singular: "job", Plural: "jobs", Verb: "enqueued"}
	PerformedJobs = Noun{Singular: "job", Plural: "jobs", Verb: "performed"}
)

func (n Noun) count(c int) string {
	if c == 1 {
		return n.Singular
	}

	return n.Plural
}

// Filter restricts which descriptors a count assertion counts. The zero
// Filter accepts everything.
type Filter struct {
	Only   []string // kinds to count; empty means all
	Except []string // kinds to skip
	Queue  any      // string, job.Symbol or nil
	Where  func(job.Descriptor) bool
}

// Accepts reports whether d passes every set field of f.
func (f Filter) Accepts(d job.Descriptor) bool {
	if len(f.Only) > 0 && !slices.Contains(f.Only, d.Kind) {
		return false
	}

	if slices.Contains(f.Except, d.Kind) {
		return false
	}

	if q, ok := job.QueueKey(f.Queue); ok && q != d.Queue {
		return false
	}

	if f.Where != nil && !f.Where(d) {
		return false
	}

	return true
}

// Apply returns the descriptors f accepts, in order.
func (f Filter) Apply(ds []job.Descriptor) []job.Descriptor {
	out := make([]job.Descriptor, 0, len(ds))

	for _, d := range ds {
		if f.Accepts(d) {
			out = append(out, d)
		}
	}

	return out
}

// AssertCount compares len(observed) to expected.
func AssertCount(expected int, observed []job.Descriptor, noun Noun) error {
	if len(observed) == expected {
		return nil
	}

	return &CountMismatchError{
		Expected: expected,
		Actual:   len(observed),
		Noun:     noun,
		Observed: observed,
	}
}
