package jobtest

import (
	"fmt"
	"strings"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

// CountMismatchError reports a count assertion that saw a different number of jobs.
type CountMismatchError struct {
	Expected int
	Actual   int
	Noun     Noun
	Observed []job.Descriptor
}

func (e *CountMismatchError) Error() string {
	var b strings.Builder

	if e.Expected == 0 {
		fmt.Fprintf(&b, "No %s expected, but %d %s %s.\n", e.Noun.Plural, e.Actual, wasWere(e.Actual), e.Noun.Verb)
		fmt.Fprintf(&b, "Expected: 0\nActual: %d", e.Actual)
	} else {
		fmt.Fprintf(&b, "%d %s expected, but %d %s %s.",
			e.Expected, e.Noun.count(e.Expected), e.Actual, wasWere(e.Actual), e.Noun.Verb)
	}

	if len(e.Observed) > 0 {
		b.WriteString("\n")
		writeObserved(&b, e.Observed)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (e *CountMismatchError) Unwrap() error { return berr.ErrCountMismatch }

// NoMatchFoundError reports a pattern assertion that found no matching job.
type NoMatchFoundError struct {
	Criteria Criteria
	Queue    string // expected queue after resolution, empty when unconstrained
	Noun     Noun
	Observed []job.Descriptor
	Diffs    []string // structural diffs against same-kind candidates
}

func (e *NoMatchFoundError) Error() string {
	var b strings.Builder

	expected := renderCriteria(e.Criteria, e.Queue)

	fmt.Fprintf(&b, "No %s %s matching %s found.\n", e.Noun.Verb, e.Noun.Singular, expected)
	fmt.Fprintf(&b, "Expected: %s\n", expected)

	if len(e.Observed) == 0 {
		b.WriteString("Actual: none")
		return b.String()
	}

	b.WriteString("Actual:\n")
	writeObserved(&b, e.Observed)

	for _, d := range e.Diffs {
		b.WriteString("\n")
		b.WriteString(d)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (e *NoMatchFoundError) Unwrap() error { return berr.ErrNoMatchFound }

// InvalidWindowStateError reports an attempt to reuse a window.
type InvalidWindowStateError struct {
	State State
}

func (e *InvalidWindowStateError) Error() string {
	return fmt.Sprintf("observation window is %s; a window can only be started once", e.State)
}

func (e *InvalidWindowStateError) Unwrap() error { return berr.ErrInvalidWindowState }

// UnresolvableQueueNameError reports that the expected queue of a kind could
// not be inferred from configuration.
type UnresolvableQueueNameError struct {
	Kind string
	Err  error
}

func (e *UnresolvableQueueNameError) Error() string {
	return fmt.Sprintf("cannot infer the queue of %s: %v", e.Kind, e.Err)
}

func (e *UnresolvableQueueNameError) Unwrap() []error {
	return []error{berr.ErrUnresolvableQueueName, e.Err}
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}

	return "were"
}
