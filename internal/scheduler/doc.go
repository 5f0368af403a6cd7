// Package scheduler runs canonical commands at a later point in time.
//
// A task is created pending and ends either fired or cancelled. The Run loop
// sleeps until the earliest fire time and is woken early when an earlier
// task is enqueued or a task is cancelled. Tasks with the same fire time
// fire in enqueue order. A failed handler is recorded on the task and never
// retried.
//
// Routines are recurring commands driven by a cron expression or a fixed
// interval; each routine keeps exactly one pending task at a time.
//
// Tasks are held in memory only.
package scheduler
