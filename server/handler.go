// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"io"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/protocol"
)

// ResponseWriter is the connection as seen by a handler. Writes never block;
// bytes the socket does not accept are queued and counted by Pending.
type ResponseWriter interface {
	io.Writer
	Pending() int
	CloseAfterFlush()
}

// RequestHandler produces the response for one parsed request. err is non-nil
// for a syntax error (api.ErrSyntax) or an oversized request (api.ErrRequestTooLarge)
// and req is nil then. The returned action decides how the connection is re-armed.
type RequestHandler interface {
	Process(w ResponseWriter, req *protocol.Request, err error) api.NextAction
}

// HandlerFunc adapts a function to RequestHandler.
type HandlerFunc func(w ResponseWriter, req *protocol.Request, err error) api.NextAction

// Process calls f.
func (f HandlerFunc) Process(w ResponseWriter, req *protocol.Request, err error) api.NextAction {
	return f(w, req, err)
}
