package stream

import (
	"github.com/yusing/chunkstream/internal/common"
)

type header struct {
	name, value string
}

const statusLine = "HTTP/1.1 200 OK\r\n"

var (
	plainHeaders = []header{
		{"Content-Type", "application/octet-stream"},
		{"Transfer-Encoding", "chunked"},
		{"Connection", "keep-alive"},
		{"Cache-Control", "no-cache, no-store, must-revalidate"},
		{"Pragma", "no-cache"},
		{"Expires", "0"},
	}
	// mimic an HTTPS endpoint, there is no TLS involved.
	secureHeaders = append(plainHeaders[:len(plainHeaders):len(plainHeaders)],
		header{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
		header{"X-Content-Type-Options", "nosniff"},
		header{"X-Frame-Options", "DENY"},
	)

	plainHeaderBlock  = renderHeaders(plainHeaders)
	secureHeaderBlock = renderHeaders(secureHeaders)
)

func renderHeaders(headers []header) []byte {
	buf := []byte(statusLine)
	for _, h := range headers {
		buf = append(buf, h.name...)
		buf = append(buf, ": "...)
		buf = append(buf, h.value...)
		buf = append(buf, "\r\n"...)
	}
	return append(buf, "\r\n"...)
}

// HeadersFor returns the response header block for a listening port.
//
// Port 443 gets the HTTPS flavored set, every other port the plain one.
// The returned slice must not be modified.
func HeadersFor(port int) []byte {
	if port == common.HTTPSPort {
		return secureHeaderBlock
	}
	return plainHeaderBlock
}
