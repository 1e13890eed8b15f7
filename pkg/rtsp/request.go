package rtsp

import (
	"bytes"
	"strings"
)

// Parser bounds. Values beyond these are truncated rather than rejected;
// legacy senders are not well behaved about header sizes.
const (
	// maxContentTypeLen bounds the stored Content-Type value.
	maxContentTypeLen = 128

	// defaultCSeq is used when a request omits CSeq or carries an
	// unparseable value. Legacy AirPlay 1 senders omit the header on some
	// requests; tolerating them beats rejecting the request.
	defaultCSeq = 1
)

var crlfcrlf = []byte("\r\n\r\n")

// HeaderField is one parsed header line.
type HeaderField struct {
	Name  string
	Value string
}

// Request is a parsed RTSP (or HTTP) request. It is derived from a
// single message buffer: Body is a zero-copy view into that buffer, valid
// only as long as the buffer is.
type Request struct {
	Method string
	Path   string
	Proto  string // "RTSP/1.0", "HTTP/1.1", or empty for bare request lines

	// CSeq defaults to 1 when absent or unparseable; ContentLength
	// defaults to 0 when absent. The raw headers remain available for
	// callers wanting stricter validation.
	CSeq          int
	ContentLength int
	ContentType   string

	// Body is the remainder of the buffer after the first CRLF-CRLF. The
	// parser does not bound it by ContentLength; cross-checking declared
	// length against the buffer is the read loop's job.
	Body []byte

	headers []HeaderField
}

// HeaderEnd returns the index of the first CRLF-CRLF in data, or -1.
// Callers use it to detect message completeness before parsing.
func HeaderEnd(data []byte) int {
	return bytes.Index(data, crlfcrlf)
}

// ParseRequest parses a complete message buffer: a CRLF-CRLF-terminated
// header block plus optional body. It fails only when no CRLF-CRLF
// terminator exists (ErrIncompleteMessage) or the first line yields no
// method token (ErrMalformedRequest).
func ParseRequest(data []byte) (*Request, error) {
	headerEnd := HeaderEnd(data)
	if headerEnd < 0 {
		return nil, ErrIncompleteMessage
	}

	lines := strings.Split(string(data[:headerEnd]), "\r\n")

	// Request line: METHOD PATH[ PROTOCOL]
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return nil, ErrMalformedRequest
	}

	req := &Request{
		Method: fields[0],
		CSeq:   defaultCSeq,
	}
	if len(fields) > 1 {
		req.Path = fields[1]
	}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}

	// Parse the header block once into structured fields. Extracting
	// values from the parsed lines (instead of substring-scanning the
	// whole block) keeps one header's parameters from being attributed
	// to another.
	for _, line := range lines[1:] {
		colon := strings.IndexByte(line, ':')
		if colon < 1 {
			continue
		}
		req.headers = append(req.headers, HeaderField{
			Name:  strings.TrimSpace(line[:colon]),
			Value: strings.TrimLeft(line[colon+1:], " \t"),
		})
	}

	if v, ok := req.Header("CSeq"); ok {
		if n, ok := parseLeadingInt(v); ok {
			req.CSeq = n
		}
	}
	if v, ok := req.Header("Content-Length"); ok {
		if n, ok := parseLeadingInt(v); ok {
			req.ContentLength = n
		}
	}
	if v, ok := req.Header("Content-Type"); ok {
		if len(v) > maxContentTypeLen {
			v = v[:maxContentTypeLen]
		}
		req.ContentType = strings.TrimRight(v, " \t")
	}

	req.Body = data[headerEnd+len(crlfcrlf):]

	return req, nil
}

// Header returns the value of the first header with the given name,
// matched case-insensitively, with leading whitespace trimmed.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Headers returns all parsed header fields in order of appearance.
func (r *Request) Headers() []HeaderField {
	return r.headers
}

// TransportPorts extracts the control_port and timing_port parameters
// from the Transport header. Missing header or parameters yield zero.
// Only the Transport header's own value is searched, so ports declared
// by a later header cannot be misattributed.
func (r *Request) TransportPorts() (controlPort, timingPort uint16) {
	v, ok := r.Header("Transport")
	if !ok {
		return 0, 0
	}
	return parsePortParam(v, "control_port="), parsePortParam(v, "timing_port=")
}

// parsePortParam finds key within value and parses the digits after it.
func parsePortParam(value, key string) uint16 {
	i := strings.Index(value, key)
	if i < 0 {
		return 0
	}
	n, ok := parseLeadingInt(value[i+len(key):])
	if !ok || n < 0 || n > 0xFFFF {
		return 0
	}
	return uint16(n)
}

// parseLeadingInt parses the leading decimal digit run of s, after
// optional whitespace. Trailing garbage is ignored, matching how lenient
// senders format these values.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")

	n := 0
	digits := 0
	for ; digits < len(s); digits++ {
		ch := s[digits]
		if ch < '0' || ch > '9' {
			break
		}
		if n > (1<<31-1)/10 {
			return 0, false
		}
		n = n*10 + int(ch-'0')
	}
	if digits == 0 {
		return 0, false
	}
	return n, true
}
