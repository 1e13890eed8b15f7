package rtsp

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseRequestBasic(t *testing.T) {
	data := []byte("OPTIONS rtsp://1.2.3.4/ RTSP/1.0\r\nCSeq: 5\r\nContent-Length: 0\r\n\r\n")

	req, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}

	if req.Method != "OPTIONS" {
		t.Errorf("Method = %q, want %q", req.Method, "OPTIONS")
	}
	if req.Path != "rtsp://1.2.3.4/" {
		t.Errorf("Path = %q, want %q", req.Path, "rtsp://1.2.3.4/")
	}
	if req.Proto != "RTSP/1.0" {
		t.Errorf("Proto = %q, want %q", req.Proto, "RTSP/1.0")
	}
	if req.CSeq != 5 {
		t.Errorf("CSeq = %d, want 5", req.CSeq)
	}
	if req.ContentLength != 0 {
		t.Errorf("ContentLength = %d, want 0", req.ContentLength)
	}
	if len(req.Body) != 0 {
		t.Errorf("Body length = %d, want 0", len(req.Body))
	}
}

func TestParseRequestHeaderCase(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{
			name: "Canonical casing",
			data: "SETUP / RTSP/1.0\r\nContent-Length: 42\r\n\r\n",
			want: 42,
		},
		{
			name: "Lower casing",
			data: "SETUP / RTSP/1.0\r\ncontent-length: 42\r\n\r\n",
			want: 42,
		},
		{
			name: "Mixed casing",
			data: "SETUP / RTSP/1.0\r\nCONTENT-length:\t42\r\n\r\n",
			want: 42,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tc.data))
			if err != nil {
				t.Fatalf("ParseRequest() error: %v", err)
			}
			if req.ContentLength != tc.want {
				t.Errorf("ContentLength = %d, want %d", req.ContentLength, tc.want)
			}
		})
	}
}

func TestParseRequestLenientDefaults(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantCSeq int
		wantCL   int
	}{
		{
			name:     "CSeq absent",
			data:     "ANNOUNCE / RTSP/1.0\r\n\r\n",
			wantCSeq: 1,
			wantCL:   0,
		},
		{
			name:     "CSeq unparseable",
			data:     "ANNOUNCE / RTSP/1.0\r\nCSeq: abc\r\n\r\n",
			wantCSeq: 1,
			wantCL:   0,
		},
		{
			name:     "CSeq with trailing text",
			data:     "ANNOUNCE / RTSP/1.0\r\nCSeq: 17 (retry)\r\n\r\n",
			wantCSeq: 17,
			wantCL:   0,
		},
		{
			name:     "Content-Length unparseable",
			data:     "ANNOUNCE / RTSP/1.0\r\nCSeq: 2\r\nContent-Length: ???\r\n\r\n",
			wantCSeq: 2,
			wantCL:   0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tc.data))
			if err != nil {
				t.Fatalf("ParseRequest() error: %v", err)
			}
			if req.CSeq != tc.wantCSeq {
				t.Errorf("CSeq = %d, want %d", req.CSeq, tc.wantCSeq)
			}
			if req.ContentLength != tc.wantCL {
				t.Errorf("ContentLength = %d, want %d", req.ContentLength, tc.wantCL)
			}
		})
	}
}

func TestParseRequestContentType(t *testing.T) {
	t.Run("params kept verbatim, trailing space trimmed", func(t *testing.T) {
		data := "ANNOUNCE / RTSP/1.0\r\nContent-Type: application/sdp; charset=utf-8  \r\n\r\n"
		req, err := ParseRequest([]byte(data))
		if err != nil {
			t.Fatalf("ParseRequest() error: %v", err)
		}
		if req.ContentType != "application/sdp; charset=utf-8" {
			t.Errorf("ContentType = %q", req.ContentType)
		}
	})

	t.Run("bounded length", func(t *testing.T) {
		long := strings.Repeat("x", 500)
		data := "ANNOUNCE / RTSP/1.0\r\nContent-Type: " + long + "\r\n\r\n"
		req, err := ParseRequest([]byte(data))
		if err != nil {
			t.Fatalf("ParseRequest() error: %v", err)
		}
		if len(req.ContentType) > maxContentTypeLen {
			t.Errorf("ContentType length = %d, want <= %d", len(req.ContentType), maxContentTypeLen)
		}
	})
}

func TestTransportPorts(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantControl uint16
		wantTiming  uint16
	}{
		{
			name:        "Both ports in Transport",
			data:        "SETUP / RTSP/1.0\r\nTransport: RTP/AVP/UDP;control_port=6001;timing_port=6002\r\n\r\n",
			wantControl: 6001,
			wantTiming:  6002,
		},
		{
			name:        "Full AirPlay 1 transport line",
			data:        "SETUP / RTSP/1.0\r\nTransport: RTP/AVP/UDP;unicast;mode=record;control_port=6001;timing_port=6002\r\n\r\n",
			wantControl: 6001,
			wantTiming:  6002,
		},
		{
			name:        "Ports only in a later unrelated header",
			data:        "SETUP / RTSP/1.0\r\nTransport: RTP/AVP/UDP;unicast\r\nX-Custom: control_port=9999;timing_port=9998\r\n\r\n",
			wantControl: 0,
			wantTiming:  0,
		},
		{
			name:        "No Transport header at all",
			data:        "SETUP / RTSP/1.0\r\nX-Custom: control_port=9999\r\n\r\n",
			wantControl: 0,
			wantTiming:  0,
		},
		{
			name:        "Control only",
			data:        "SETUP / RTSP/1.0\r\nTransport: RTP/AVP/UDP;control_port=7777\r\n\r\n",
			wantControl: 7777,
			wantTiming:  0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tc.data))
			if err != nil {
				t.Fatalf("ParseRequest() error: %v", err)
			}
			control, timing := req.TransportPorts()
			if control != tc.wantControl {
				t.Errorf("control port = %d, want %d", control, tc.wantControl)
			}
			if timing != tc.wantTiming {
				t.Errorf("timing port = %d, want %d", timing, tc.wantTiming)
			}
		})
	}
}

func TestParseRequestBodyView(t *testing.T) {
	body := "v=0\r\no=AirTunes"
	data := []byte("ANNOUNCE / RTSP/1.0\r\nCSeq: 3\r\nContent-Length: 15\r\n\r\n" + body)

	req, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}

	if string(req.Body) != body {
		t.Errorf("Body = %q, want %q", req.Body, body)
	}

	// Zero-copy: the body aliases the input buffer.
	if len(req.Body) > 0 && &req.Body[0] != &data[len(data)-len(body)] {
		t.Error("Body is not a view into the original buffer")
	}
}

func TestParseRequestFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "No header terminator",
			data: "OPTIONS / RTSP/1.0\r\nCSeq: 1\r\n",
			want: ErrIncompleteMessage,
		},
		{
			name: "Empty buffer",
			data: "",
			want: ErrIncompleteMessage,
		},
		{
			name: "Empty request line",
			data: "\r\n\r\n",
			want: ErrMalformedRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRequest([]byte(tc.data)); !errors.Is(err, tc.want) {
				t.Errorf("ParseRequest() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestHeaderEnd(t *testing.T) {
	if got := HeaderEnd([]byte("A / P\r\nH: v\r\n\r\nbody")); got != 11 {
		t.Errorf("HeaderEnd() = %d, want 11", got)
	}
	if got := HeaderEnd([]byte("A / P\r\nH: v\r\n")); got != -1 {
		t.Errorf("HeaderEnd() = %d, want -1", got)
	}
}

func TestHeaderLookup(t *testing.T) {
	data := []byte("RECORD / RTSP/1.0\r\nRange: npt=0-\r\nRTP-Info:  seq=1234\r\n\r\n")
	req, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}

	if v, ok := req.Header("range"); !ok || v != "npt=0-" {
		t.Errorf(`Header("range") = %q, %v`, v, ok)
	}
	// Leading whitespace trimmed, value otherwise verbatim.
	if v, ok := req.Header("RTP-INFO"); !ok || v != "seq=1234" {
		t.Errorf(`Header("RTP-INFO") = %q, %v`, v, ok)
	}
	if _, ok := req.Header("Session"); ok {
		t.Error(`Header("Session") found, want absent`)
	}
	if len(req.Headers()) != 2 {
		t.Errorf("Headers() length = %d, want 2", len(req.Headers()))
	}
}

func TestParseRequestBareLine(t *testing.T) {
	// Some senders omit the protocol token entirely.
	req, err := ParseRequest([]byte("TEARDOWN rtsp://host/stream\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}
	if req.Method != "TEARDOWN" || req.Path != "rtsp://host/stream" || req.Proto != "" {
		t.Errorf("parsed %q %q %q", req.Method, req.Path, req.Proto)
	}
}

func TestParseRequestBinaryBody(t *testing.T) {
	body := []byte{0x00, 0x01, 0xFF, 0xFE, 0x62, 0x70, 0x6C}
	data := append([]byte("SET_PARAMETER / RTSP/1.0\r\nContent-Length: 7\r\nContent-Type: application/x-apple-binary-plist\r\n\r\n"), body...)

	req, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("ParseRequest() error: %v", err)
	}
	if !bytes.Equal(req.Body, body) {
		t.Errorf("Body = %x, want %x", req.Body, body)
	}
	if req.ContentType != "application/x-apple-binary-plist" {
		t.Errorf("ContentType = %q", req.ContentType)
	}
}
