// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package control holds runtime counters and debug probes shared by the reactor,
// the worker pool and the server facade.
package control
