// File: server/file_handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FileHandler is the default RequestHandler: static files under a document root.

package server

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/pool"
	"github.com/momentics/hioload-httpd/protocol"
)

const serverName = "hioload-httpd"

// responses are copied into the connection's queue by Write, so buffers recycle right away
var responseBuffers = pool.NewBufferPool(pool.DefaultMaxRetained)

// FileHandler serves GET and HEAD for files below Root.
type FileHandler struct {
	Root  string
	Index string // file served for directory URIs, "index.html" if empty
	log   *logrus.Entry
}

// NewFileHandler returns a handler rooted at root.
func NewFileHandler(root string, log *logrus.Entry) *FileHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FileHandler{Root: root, Index: "index.html", log: log.WithField("component", "handler")}
}

// Process implements RequestHandler.
func (h *FileHandler) Process(w ResponseWriter, req *protocol.Request, err error) api.NextAction {
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, api.ErrRequestTooLarge) {
			status = http.StatusRequestHeaderFieldsTooLarge
		}
		return h.respond(w, status, nil, "", false, false)
	}

	keepAlive := req.KeepAlive()
	head := req.Method == protocol.MethodHead
	if req.Method != protocol.MethodGet && !head {
		return h.respond(w, http.StatusNotImplemented, nil, "", keepAlive, head)
	}

	name, status := h.resolve(req.URI)
	if status != http.StatusOK {
		return h.respond(w, status, nil, "", keepAlive, head)
	}
	body, rerr := os.ReadFile(name)
	if rerr != nil {
		h.log.WithError(rerr).WithField("file", name).Warn("read failed")
		return h.respond(w, statusForFSError(rerr), nil, "", keepAlive, head)
	}
	return h.respond(w, http.StatusOK, body, mime.TypeByExtension(filepath.Ext(name)), keepAlive, head)
}

// resolve maps a request URI to a file below Root.
func (h *FileHandler) resolve(uri string) (string, int) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	if !strings.HasPrefix(uri, "/") {
		return "", http.StatusBadRequest
	}
	// Clean on a rooted path never climbs above "/"
	clean := path.Clean(uri)
	name := filepath.Join(h.Root, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err != nil {
		return "", statusForFSError(err)
	}
	if info.IsDir() {
		index := h.Index
		if index == "" {
			index = "index.html"
		}
		name = filepath.Join(name, index)
		if info, err = os.Stat(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", http.StatusForbidden
			}
			return "", statusForFSError(err)
		}
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o004 == 0 {
		return "", http.StatusForbidden
	}
	return name, http.StatusOK
}

func statusForFSError(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respond writes a complete response and picks the follow-up action.
func (h *FileHandler) respond(w ResponseWriter, status int, body []byte, ctype string, keepAlive, head bool) api.NextAction {
	if body == nil && status != http.StatusOK {
		body = []byte(strconv.Itoa(status) + " " + http.StatusText(status) + "\n")
		ctype = "text/plain; charset=utf-8"
	}
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	buf := responseBuffers.Get()
	defer responseBuffers.Put(buf)
	buf.Grow(128 + len(body))
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(http.StatusText(status))
	buf.WriteString("\r\nServer: " + serverName)
	buf.WriteString("\r\nContent-Type: " + ctype)
	buf.WriteString("\r\nContent-Length: " + strconv.Itoa(len(body)))
	if keepAlive {
		buf.WriteString("\r\nConnection: keep-alive\r\n\r\n")
	} else {
		buf.WriteString("\r\nConnection: close\r\n\r\n")
	}
	if !head {
		buf.Write(body)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.WithError(err).Debug("write failed")
		return api.ActionClose
	}
	switch {
	case !keepAlive:
		return api.ActionClose
	case w.Pending() > 0:
		return api.ActionSwitchToWrite
	default:
		return api.ActionRearmRead
	}
}
