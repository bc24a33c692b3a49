// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "strings"

// Method is one of the request methods the parser accepts.
type Method uint8

const (
	MethodGet Method = iota
	MethodPost
	MethodHead
	MethodPut
	MethodDelete
	MethodTrace
	MethodOptions
	MethodConnect
	MethodPatch
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodHead:    "HEAD",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodTrace:   "TRACE",
	MethodOptions: "OPTIONS",
	MethodConnect: "CONNECT",
	MethodPatch:   "PATCH",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "UNKNOWN"
}

// ParseMethod matches token case-sensitively against the recognized set.
func ParseMethod(token string) (Method, bool) {
	for i, name := range methodNames {
		if name == token {
			return Method(i), true
		}
	}
	return 0, false
}

// Request is the structured result of a completed parse. Fields are copies and
// stay valid after the connection buffer is consumed.
type Request struct {
	Method     Method
	URI        string
	Version    string
	Host       string
	Connection string
}

// KeepAlive reports whether the connection should stay open after the response.
func (r *Request) KeepAlive() bool {
	switch r.Version {
	case "HTTP/1.1":
		return !hasToken(r.Connection, "close")
	case "HTTP/1.0":
		return hasToken(r.Connection, "keep-alive")
	}
	return false
}

// hasToken looks for a comma-separated, case-insensitive token in a header value.
func hasToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
