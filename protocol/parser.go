// File: protocol/parser.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resumable request parser: RequestLine -> Headers -> Done, Error reachable from both.

package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/momentics/hioload-httpd/api"
)

// Phase is the parser's position in the request grammar.
type Phase uint8

const (
	PhaseRequestLine Phase = iota
	PhaseHeaders
	PhaseDone
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseRequestLine:
		return "request-line"
	case PhaseHeaders:
		return "headers"
	case PhaseDone:
		return "done"
	default:
		return "error"
	}
}

// Result is what a Parse call tells its caller to do next.
type Result uint8

const (
	// ResultIncomplete means the buffer ran out mid-line; read more and call again.
	ResultIncomplete Result = iota
	// ResultComplete means a full request is available from Request.
	ResultComplete
	// ResultMalformed means the request is syntactically invalid.
	ResultMalformed
)

func (r Result) String() string {
	switch r {
	case ResultIncomplete:
		return "incomplete"
	case ResultComplete:
		return "complete"
	default:
		return "malformed"
	}
}

// LineResult is the outcome of scanning for a CRLF terminator.
type LineResult uint8

const (
	LineComplete LineResult = iota
	LineIncomplete
	LineMalformed
)

// SyntaxError describes where and why a request was rejected.
type SyntaxError struct {
	Phase  Phase
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("protocol: malformed %s at offset %d: %s", e.Phase, e.Offset, e.Reason)
}

// Unwrap lets callers match api.ErrSyntax.
func (e *SyntaxError) Unwrap() error { return api.ErrSyntax }

// ScanLine looks for a CRLF-terminated line starting at from. On LineComplete it
// returns the line without the terminator and the offset just past it; otherwise
// next equals from.
func ScanLine(buf []byte, from int) (line []byte, next int, res LineResult) {
	line, next, _, res = scan(buf, from, from)
	return line, next, res
}

// scan is ScanLine with a separate cursor: bytes in [start, cursor) are known to be
// free of CR and LF and are not examined again. The returned cursor is where the
// next scan of the same line should resume.
func scan(buf []byte, start, cursor int) ([]byte, int, int, LineResult) {
	i := bytes.IndexAny(buf[cursor:], "\r\n")
	if i < 0 {
		return nil, start, len(buf), LineIncomplete
	}
	i += cursor
	if buf[i] == '\n' {
		return nil, start, i, LineMalformed
	}
	if i+1 == len(buf) {
		// CR is the last byte; its LF may still be in flight.
		return nil, start, i, LineIncomplete
	}
	if buf[i+1] != '\n' {
		return nil, start, i, LineMalformed
	}
	return buf[start:i], i + 2, i + 2, LineComplete
}

// Parser is the per-connection parse state. The zero value is ready to use.
// Every call must pass the same accumulated buffer, grown only by appending,
// until Reset is called.
type Parser struct {
	phase  Phase
	offset int // first byte of the current line
	cursor int // resume point of the current line scan
	req    Request
	err    *SyntaxError
}

// Phase returns the current phase.
func (p *Parser) Phase() Phase { return p.phase }

// Consumed returns how many bytes of the buffer belong to lines already parsed.
func (p *Parser) Consumed() int { return p.offset }

// Request returns the parsed request once Parse has reported ResultComplete.
func (p *Parser) Request() *Request {
	if p.phase != PhaseDone {
		return nil
	}
	req := p.req
	return &req
}

// Reset prepares the parser for the next request on the same connection.
func (p *Parser) Reset() {
	*p = Parser{}
}

// Parse advances the state machine over buf. It returns ResultIncomplete without
// error when more bytes are needed, ResultMalformed with a *SyntaxError on invalid
// input, and ResultComplete once the blank line ending the headers was seen.
// Once Done or Error, further calls return the same outcome.
func (p *Parser) Parse(buf []byte) (Result, error) {
	for {
		switch p.phase {
		case PhaseDone:
			return ResultComplete, nil
		case PhaseError:
			return ResultMalformed, p.err
		}
		if p.offset > len(buf) {
			return p.fail("buffer shrank below consumed offset")
		}
		if p.cursor < p.offset {
			p.cursor = p.offset
		}

		line, next, cursor, res := scan(buf, p.offset, p.cursor)
		p.cursor = cursor
		switch res {
		case LineIncomplete:
			return ResultIncomplete, nil
		case LineMalformed:
			return p.fail("line terminator is not CRLF")
		}

		if p.phase == PhaseRequestLine {
			if reason := p.requestLine(string(line)); reason != "" {
				return p.fail(reason)
			}
			p.offset = next
			p.phase = PhaseHeaders
			continue
		}

		if len(line) == 0 {
			p.offset = next
			p.phase = PhaseDone
			return ResultComplete, nil
		}
		if reason := p.header(line); reason != "" {
			return p.fail(reason)
		}
		p.offset = next
	}
}

func (p *Parser) fail(reason string) (Result, error) {
	p.err = &SyntaxError{Phase: p.phase, Offset: p.offset, Reason: reason}
	p.phase = PhaseError
	return ResultMalformed, p.err
}

// requestLine fills method, uri and version. A non-empty return is the failure reason.
func (p *Parser) requestLine(line string) string {
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return fmt.Sprintf("request line has %d tokens, want 3", len(tokens))
	}
	for _, t := range tokens {
		if t == "" {
			return "empty request line token"
		}
	}
	m, ok := ParseMethod(tokens[0])
	if !ok {
		return fmt.Sprintf("unknown method %q", tokens[0])
	}
	p.req.Method = m
	p.req.URI = tokens[1]
	p.req.Version = tokens[2]
	return ""
}

// header records Host and Connection; other names are validated and dropped.
func (p *Parser) header(line []byte) string {
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return "header line without colon"
	}
	if colon == 0 {
		return "empty header name"
	}
	name := line[:colon]
	value := bytes.TrimLeft(line[colon+1:], " ")
	switch {
	case bytes.EqualFold(name, []byte("Host")):
		p.req.Host = string(value)
	case bytes.EqualFold(name, []byte("Connection")):
		p.req.Connection = string(value)
	}
	return ""
}
