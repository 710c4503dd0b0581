// Package audit keeps the outcome history of dispatched requests in the
// audit_logs table.
//
// A Recorder is registered as a dispatcher notifier. It queues events and
// writes them from its own goroutine so the dispatcher loop never waits on
// SQLite. Capture acknowledgements and list requests are not recorded; the
// terminal event of a capture carries its outcome.
package audit
