// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency provides the fixed-size worker pool used behind the reactor.
// Workers consume a bounded FIFO of tasks under a mutex and condition variable;
// a full queue is reported to the submitter instead of blocking it.
package concurrency
