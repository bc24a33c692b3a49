// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package protocol implements a resumable HTTP/1.x request-line and header parser.
//
// Parser keeps its phase, consumed offset and scan cursor between calls, so a request
// that arrives over many reads is parsed once, byte by byte, and never restarted.
// The parser only judges syntax. Permission, resource lookup and peer-close detection
// belong to the layer that calls it.
package protocol
