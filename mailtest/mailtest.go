// Package mailtest asserts on mail sent and enqueued through package mailer.
// Emails count as sent when their delivery job is performed; assertions with
// a body also perform the deliveries that body enqueues, the way a test
// environment delivers inline.
package mailtest

import (
	"time"

	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/jobtest"
	"github.com/next-trace/scg-jobtest/mailer"
	"github.com/next-trace/scg-jobtest/queue"
)

var (
	SentEmails     = jobtest.Noun{Singular: "email", Plural: "emails", Verb: "sent"}
	EnqueuedEmails = jobtest.Noun{Singular: "email", Plural: "emails", Verb: "enqueued"}
)

var deliveries = jobtest.Filter{Only: []string{mailer.DeliveryJobKind}}

// EmailMatch narrows AssertEnqueuedEmailWith. Zero fields are wildcards; a
// nil Queue is inferred from the mailer, then from queue configuration.
type EmailMatch struct {
	Args   []any
	Params any // raw map or mailer.Parameterized
	Queue  any
	At     time.Time
}

// Helper runs email assertions for one test.
type Helper struct {
	t  jobtest.T
	jh *jobtest.Helper
}

// New returns a Helper observing d, which must have a mailer.Deliverer registered.
func New(t jobtest.T, d *queue.Dispatcher, opts ...jobtest.HelperOption) *Helper {
	t.Helper()

	return &Helper{t: t, jh: jobtest.New(t, d, opts...)}
}

// Jobs exposes the underlying job assertions.
func (h *Helper) Jobs() *jobtest.Helper { return h.jh }

// Reset discards what was captured for body-less assertions.
func (h *Helper) Reset() { h.jh.Reset() }

// AssertEmails asserts that n emails were sent.
func (h *Helper) AssertEmails(n int, body func() error) []mailer.Message {
	h.t.Helper()

	sent := h.jh.AssertCount(job.Performed, n, deliveries, SentEmails, h.jh.Performing(body, deliveries))

	return messages(sent)
}

// AssertNoEmails asserts that no email was sent.
func (h *Helper) AssertNoEmails(body func() error) {
	h.t.Helper()

	h.AssertEmails(0, body)
}

// AssertEnqueuedEmails asserts that n emails were enqueued.
func (h *Helper) AssertEnqueuedEmails(n int, body func() error) []job.Descriptor {
	h.t.Helper()

	return h.jh.AssertCount(job.Enqueued, n, deliveries, EnqueuedEmails, body)
}

// AssertNoEnqueuedEmails asserts that no email was enqueued.
func (h *Helper) AssertNoEnqueuedEmails(body func() error) {
	h.t.Helper()

	h.AssertEnqueuedEmails(0, body)
}

// AssertEnqueuedEmailWith asserts that m.method was enqueued for delivery
// with the given arguments.
func (h *Helper) AssertEnqueuedEmailWith(m mailer.Mailer, method string, match EmailMatch, body func() error) []job.Descriptor {
	h.t.Helper()

	c := jobtest.Criteria{
		Kind:        mailer.DeliveryJobKind,
		Args:        []any{m.MailerName(), method, "deliver_now"},
		Params:      match.Params,
		Queue:       match.Queue,
		ScheduledAt: match.At,
	}

	if match.Args != nil {
		c.NamedArgs = map[string]any{"args": match.Args}
	}

	if c.Queue == nil {
		if qc, ok := m.(mailer.QueueConfigurer); ok {
			c.Queue = qc.DeliverLaterQueueName()
		}
	}

	return h.jh.AssertMatch(job.Enqueued, c, EnqueuedEmails, body)
}

// DeliverEnqueuedEmails performs the deliveries body enqueues, or every
// pending delivery when body is nil.
func (h *Helper) DeliverEnqueuedEmails(body func() error) {
	h.t.Helper()

	h.jh.PerformEnqueuedJobs(body, deliveries)
}

// CaptureEmails returns the emails sent while body ran, including deliveries
// body enqueued. A nil body returns what was sent since the last reset.
func (h *Helper) CaptureEmails(body func() error) []mailer.Message {
	h.t.Helper()

	snap, err := h.jh.Recorder().Observe(h.jh.Performing(body, deliveries))
	if err != nil {
		h.t.Fatal(err)
	}

	return messages(deliveries.Apply(snap.Performed))
}

func messages(ds []job.Descriptor) []mailer.Message {
	out := make([]mailer.Message, 0, len(ds))

	for _, d := range ds {
		if m, ok := mailer.MessageOf(d); ok {
			out = append(out, m)
		}
	}

	return out
}
