package jobtest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/next-trace/scg-jobtest/contract/job"
)

func writeObserved(b *strings.Builder, ds []job.Descriptor) {
	for i, d := range ds {
		fmt.Fprintf(b, "  %d. %s\n", i+1, Render(d))
	}
}

// Render formats a descriptor for failure messages.
func Render(d job.Descriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s queue=%s args=%s", d.Kind, d.Queue, render(d.Args))

	if len(d.NamedArgs) > 0 {
		fmt.Fprintf(&b, " named_args=%s", render(d.NamedArgs))
	}

	if d.Params != nil {
		fmt.Fprintf(&b, " params=%s", render(d.Params))
	}

	if d.Scheduled() {
		fmt.Fprintf(&b, " at=%s", d.ScheduledAt.Format(time.RFC3339))
	}

	return b.String()
}

func renderCriteria(c Criteria, queue string) string {
	parts := []string{}

	if c.Kind != "" {
		parts = append(parts, "kind="+c.Kind)
	}

	if queue != "" {
		parts = append(parts, "queue="+queue)
	}

	if c.Args != nil {
		parts = append(parts, "args="+render(c.Args))
	}

	if c.NamedArgs != nil {
		parts = append(parts, "named_args="+render(c.NamedArgs))
	}

	if c.Params != nil {
		parts = append(parts, "params="+render(c.Params))
	}

	if !c.ScheduledAt.IsZero() {
		parts = append(parts, "at="+c.ScheduledAt.Format(time.RFC3339))
	}

	if len(parts) == 0 {
		return "any job"
	}

	return strings.Join(parts, " ")
}

func render(v any) string {
	switch t := job.Normalize(v).(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case job.Symbol:
		return t.String()
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = render(item)
		}

		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + ": " + render(t[k])
		}

		return "{" + strings.Join(items, ", ") + "}"
	default:
		return fmt.Sprintf("%+v", t)
	}
}
