/*
Package queue provides the job dispatcher: it binds performers to job kinds,
enqueues work through a pluggable job.Enqueuer, performs jobs synchronously or
from a drained queue, and raises enqueued/performed events to subscribers.
*/
package queue
