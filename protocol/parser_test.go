package protocol_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/protocol"
)

const fullRequest = "GET /index HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n"

func parseAll(t *testing.T, raw string) (*protocol.Request, protocol.Result, error) {
	t.Helper()
	var p protocol.Parser
	res, err := p.Parse([]byte(raw))
	return p.Request(), res, err
}

func TestParseFullRequest(t *testing.T) {
	req, res, err := parseAll(t, fullRequest)
	if err != nil || res != protocol.ResultComplete {
		t.Fatalf("Parse = %v, %v; want complete", res, err)
	}
	want := protocol.Request{
		Method:     protocol.MethodGet,
		URI:        "/index",
		Version:    "HTTP/1.1",
		Host:       "example.com",
		Connection: "keep-alive",
	}
	if *req != want {
		t.Errorf("request = %+v, want %+v", *req, want)
	}
}

func TestParseConsumedCoversWholeRequest(t *testing.T) {
	var p protocol.Parser
	buf := []byte(fullRequest + "GET /next")
	if res, _ := p.Parse(buf); res != protocol.ResultComplete {
		t.Fatalf("result = %v", res)
	}
	if p.Consumed() != len(fullRequest) {
		t.Errorf("Consumed = %d, want %d", p.Consumed(), len(fullRequest))
	}
}

func TestParseIncompleteKeepsState(t *testing.T) {
	var p protocol.Parser
	buf := []byte("GET / HTTP/1.1\r\nHost: exa")
	res, err := p.Parse(buf)
	if err != nil || res != protocol.ResultIncomplete {
		t.Fatalf("Parse = %v, %v; want incomplete", res, err)
	}
	if p.Phase() != protocol.PhaseHeaders {
		t.Errorf("phase = %v, want headers", p.Phase())
	}
	if p.Consumed() != len("GET / HTTP/1.1\r\n") {
		t.Errorf("Consumed = %d", p.Consumed())
	}
	if p.Request() != nil {
		t.Error("Request must be nil before Done")
	}

	buf = append(buf, "mple.com\r\n\r\n"...)
	res, err = p.Parse(buf)
	if err != nil || res != protocol.ResultComplete {
		t.Fatalf("continued Parse = %v, %v", res, err)
	}
	if got := p.Request().Host; got != "example.com" {
		t.Errorf("Host = %q", got)
	}
}

func TestParseChunkedEqualsWhole(t *testing.T) {
	requests := []string{
		fullRequest,
		"POST /submit?x=1 HTTP/1.0\r\nconnection: close\r\nX-Other: a:b\r\nHOST:   h.example:8080\r\n\r\n",
		"PATCH * HTTP/1.1\r\n\r\n",
		"OPTIONS /a HTTP/1.1\r\nUser-Agent: t\r\nHost: x\r\n\r\n",
	}
	for _, raw := range requests {
		whole, res, err := parseAll(t, raw)
		if res != protocol.ResultComplete || err != nil {
			t.Fatalf("%q whole: %v %v", raw, res, err)
		}
		for size := 1; size <= len(raw); size++ {
			var p protocol.Parser
			var buf []byte
			var last protocol.Result
			for i := 0; i < len(raw); i += size {
				end := i + size
				if end > len(raw) {
					end = len(raw)
				}
				buf = append(buf, raw[i:end]...)
				last, err = p.Parse(buf)
				if err != nil {
					t.Fatalf("%q chunk %d: %v", raw, size, err)
				}
				if end < len(raw) && last != protocol.ResultIncomplete {
					t.Fatalf("%q chunk %d: early %v at %d", raw, size, last, end)
				}
			}
			if last != protocol.ResultComplete {
				t.Fatalf("%q chunk %d: final %v", raw, size, last)
			}
			if got := p.Request(); *got != *whole {
				t.Errorf("%q chunk %d: %+v != %+v", raw, size, *got, *whole)
			}
		}
	}
}

func TestParseFieldsMatchInput(t *testing.T) {
	for _, m := range []string{"GET", "POST", "HEAD", "PUT", "DELETE", "TRACE", "OPTIONS", "CONNECT", "PATCH"} {
		raw := m + " /p/" + m + " HTTP/1.1\r\nHost: host-" + m + "\r\nConnection: c-" + m + "\r\n\r\n"
		req, res, err := parseAll(t, raw)
		if res != protocol.ResultComplete || err != nil {
			t.Fatalf("%s: %v %v", m, res, err)
		}
		if req.Method.String() != m || req.URI != "/p/"+m || req.Version != "HTTP/1.1" ||
			req.Host != "host-"+m || req.Connection != "c-"+m {
			t.Errorf("%s: fields %+v", m, *req)
		}
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := map[string]string{
		"unknown method":  "FOO / HTTP/1.1\r\n\r\n",
		"lowercase":       "get / HTTP/1.1\r\n\r\n",
		"two tokens":      "GET /\r\n\r\n",
		"four tokens":     "GET / HTTP/1.1 x\r\n\r\n",
		"double space":    "GET  / HTTP/1.1\r\n\r\n",
		"bare cr":         "GET / HTTP/1.1\rHost: x\r\n\r\n",
		"bare lf":         "GET / HTTP/1.1\nHost: x\r\n\r\n",
		"header no colon": "GET / HTTP/1.1\r\nHost example.com\r\n\r\n",
		"empty name":      "GET / HTTP/1.1\r\n: v\r\n\r\n",
	}
	for name, raw := range cases {
		_, res, err := parseAll(t, raw)
		if res != protocol.ResultMalformed {
			t.Errorf("%s: result %v, want malformed", name, res)
			continue
		}
		if !errors.Is(err, api.ErrSyntax) {
			t.Errorf("%s: err %v does not match ErrSyntax", name, err)
		}
		var se *protocol.SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%s: err %T is not *SyntaxError", name, err)
		}
	}
}

func TestUnknownMethodNeverIncomplete(t *testing.T) {
	var p protocol.Parser
	res, err := p.Parse([]byte("FOO / HTTP/1.1\r\n"))
	if res != protocol.ResultMalformed || err == nil {
		t.Fatalf("Parse = %v, %v", res, err)
	}
	// sticky
	if res, _ = p.Parse([]byte("FOO / HTTP/1.1\r\nHost: x\r\n\r\n")); res != protocol.ResultMalformed {
		t.Errorf("second Parse = %v", res)
	}
}

func TestTrailingCRIsIncomplete(t *testing.T) {
	var p protocol.Parser
	buf := []byte("GET / HTTP/1.1\r")
	if res, err := p.Parse(buf); res != protocol.ResultIncomplete || err != nil {
		t.Fatalf("Parse = %v, %v", res, err)
	}
	buf = append(buf, "\n\r\n"...)
	if res, err := p.Parse(buf); res != protocol.ResultComplete || err != nil {
		t.Fatalf("Parse = %v, %v", res, err)
	}
}

func TestResetParsesNextRequest(t *testing.T) {
	var p protocol.Parser
	buf := []byte(fullRequest + "HEAD /two HTTP/1.1\r\n\r\n")
	p.Parse(buf)
	buf = buf[p.Consumed():]
	p.Reset()
	res, err := p.Parse(buf)
	if res != protocol.ResultComplete || err != nil {
		t.Fatalf("Parse = %v, %v", res, err)
	}
	if r := p.Request(); r.Method != protocol.MethodHead || r.URI != "/two" {
		t.Errorf("second request = %+v", *r)
	}
}

func TestScanLine(t *testing.T) {
	buf := []byte("abc\r\ndef")
	line, next, res := protocol.ScanLine(buf, 0)
	if res != protocol.LineComplete || string(line) != "abc" || next != 5 {
		t.Errorf("ScanLine = %q, %d, %v", line, next, res)
	}
	if _, next, res = protocol.ScanLine(buf, 5); res != protocol.LineIncomplete || next != 5 {
		t.Errorf("ScanLine tail = %d, %v", next, res)
	}
	if _, _, res = protocol.ScanLine([]byte("a\rb"), 0); res != protocol.LineMalformed {
		t.Errorf("bare CR = %v", res)
	}
}

func TestKeepAlive(t *testing.T) {
	cases := []struct {
		version, conn string
		want          bool
	}{
		{"HTTP/1.1", "", true},
		{"HTTP/1.1", "Close", false},
		{"HTTP/1.1", "keep-alive, Upgrade", true},
		{"HTTP/1.0", "", false},
		{"HTTP/1.0", "Keep-Alive", true},
		{"HTTP/2.0", "keep-alive", false},
	}
	for _, c := range cases {
		r := protocol.Request{Version: c.version, Connection: c.conn}
		if got := r.KeepAlive(); got != c.want {
			t.Errorf("KeepAlive(%s, %q) = %v", c.version, c.conn, got)
		}
	}
}
