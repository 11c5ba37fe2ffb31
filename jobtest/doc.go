/*
Package jobtest records the jobs a job.EventSource enqueues and performs
during a bounded observation window and asserts on what was captured.

A Window moves from Inactive to Active to Closed exactly once. Windows may be
nested: every active window records every event, so an inner window sees only
what happened inside it while the enclosing window also sees it. Sequential
windows never share captured jobs.

The Recorder functions return errors (CountMismatchError, NoMatchFoundError,
InvalidWindowStateError, UnresolvableQueueNameError) and are usable from any
code; Helper wraps them for tests and fails the test on the first mismatch.
*/
package jobtest
