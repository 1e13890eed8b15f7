package rtsp

import (
	"bytes"
	"strconv"
)

// ServerIdentity is the literal server identification string AirPlay
// senders expect on every response.
const ServerIdentity = "AirTunes/377.40.00"

// Response protocols.
const (
	ProtoRTSP = "RTSP/1.0"
	ProtoHTTP = "HTTP/1.1"
)

// Response is a structured RTSP (or HTTP) response. Encode serializes it;
// Conn.WriteResponse routes the serialized bytes through the encrypted
// frame codec or the plaintext send depending on connection mode.
type Response struct {
	Proto  string // defaults to ProtoRTSP
	Code   int
	Status string

	// CSeq echoes the request's sequence number.
	CSeq int

	// Headers are caller-supplied extra headers, emitted in order.
	Headers []HeaderField

	// Body, when non-empty, is appended after the header block with a
	// computed Content-Length.
	Body []byte
}

// Encode serializes the response: status line, CSeq, server
// identification, extra headers, Content-Length when a body is attached,
// blank line, body.
func (r *Response) Encode() []byte {
	proto := r.Proto
	if proto == "" {
		proto = ProtoRTSP
	}

	var buf bytes.Buffer
	buf.WriteString(proto)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(r.Code))
	buf.WriteByte(' ')
	buf.WriteString(r.Status)
	buf.WriteString("\r\n")

	buf.WriteString("CSeq: ")
	buf.WriteString(strconv.Itoa(r.CSeq))
	buf.WriteString("\r\n")

	buf.WriteString("Server: ")
	buf.WriteString(ServerIdentity)
	buf.WriteString("\r\n")

	for _, h := range r.Headers {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}

	if len(r.Body) > 0 {
		buf.WriteString("Content-Length: ")
		buf.WriteString(strconv.Itoa(len(r.Body)))
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(r.Body)

	return buf.Bytes()
}

// WriteResponse serializes and sends a response on this connection,
// through the encrypted frame codec in encrypted mode or a plain
// retrying send otherwise.
func (c *Conn) WriteResponse(r *Response) error {
	data := r.Encode()
	if c.encrypted {
		return c.WriteMessage(data)
	}
	return c.sendAll(data)
}

// WriteOK sends an empty 200 OK echoing the given CSeq.
func (c *Conn) WriteOK(cseq int) error {
	return c.WriteResponse(&Response{Code: 200, Status: "OK", CSeq: cseq})
}
