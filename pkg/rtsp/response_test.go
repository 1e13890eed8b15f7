package rtsp

import (
	"bytes"
	"testing"
)

func TestResponseEncode(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "Empty OK",
			resp: Response{Code: 200, Status: "OK", CSeq: 7},
			want: "RTSP/1.0 200 OK\r\nCSeq: 7\r\nServer: AirTunes/377.40.00\r\n\r\n",
		},
		{
			name: "With extra headers",
			resp: Response{
				Code:   200,
				Status: "OK",
				CSeq:   2,
				Headers: []HeaderField{
					{Name: "Transport", Value: "RTP/AVP/UDP;server_port=53561"},
					{Name: "Session", Value: "1"},
				},
			},
			want: "RTSP/1.0 200 OK\r\nCSeq: 2\r\nServer: AirTunes/377.40.00\r\n" +
				"Transport: RTP/AVP/UDP;server_port=53561\r\nSession: 1\r\n\r\n",
		},
		{
			name: "With body",
			resp: Response{
				Code:    200,
				Status:  "OK",
				CSeq:    3,
				Headers: []HeaderField{{Name: "Content-Type", Value: "text/parameters"}},
				Body:    []byte("volume: 0.0\r\n"),
			},
			want: "RTSP/1.0 200 OK\r\nCSeq: 3\r\nServer: AirTunes/377.40.00\r\n" +
				"Content-Type: text/parameters\r\nContent-Length: 13\r\n\r\nvolume: 0.0\r\n",
		},
		{
			name: "Error status",
			resp: Response{Code: 453, Status: "Not Enough Bandwidth", CSeq: 4},
			want: "RTSP/1.0 453 Not Enough Bandwidth\r\nCSeq: 4\r\nServer: AirTunes/377.40.00\r\n\r\n",
		},
		{
			name: "HTTP protocol",
			resp: Response{
				Proto:   ProtoHTTP,
				Code:    200,
				Status:  "OK",
				CSeq:    1,
				Headers: []HeaderField{{Name: "Content-Type", Value: "text/html"}},
				Body:    []byte("<html></html>"),
			},
			want: "HTTP/1.1 200 OK\r\nCSeq: 1\r\nServer: AirTunes/377.40.00\r\n" +
				"Content-Type: text/html\r\nContent-Length: 13\r\n\r\n<html></html>",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.resp.Encode()
			if string(got) != tc.want {
				t.Errorf("Encode() =\n%q\nwant\n%q", got, tc.want)
			}
		})
	}
}

func TestWriteResponsePlaintext(t *testing.T) {
	sc := &scriptConn{}
	conn := NewConn(sc)

	resp := &Response{Code: 200, Status: "OK", CSeq: 9}
	if err := conn.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}

	if !bytes.Equal(sc.wrote.Bytes(), resp.Encode()) {
		t.Error("plaintext response bytes differ from Encode()")
	}
}

func TestWriteResponseEncrypted(t *testing.T) {
	sender, receiver := testSessions(t)

	sc := &scriptConn{}
	conn := NewConn(sc)
	conn.AttachSession(sender)

	resp := &Response{
		Code:    200,
		Status:  "OK",
		CSeq:    12,
		Headers: []HeaderField{{Name: "Audio-Jack-Status", Value: "connected"}},
	}
	if err := conn.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}

	// The wire bytes are not the serialized response: they went through
	// the frame codec.
	if bytes.Contains(sc.wrote.Bytes(), []byte("AirTunes")) {
		t.Fatal("response was sent in plaintext on an encrypted connection")
	}

	rc := NewConn(&scriptConn{reads: [][]byte{sc.wrote.Bytes()}})
	rc.AttachSession(receiver)
	got, _ := readAll(t, rc)
	if !bytes.Equal(got, resp.Encode()) {
		t.Error("decrypted response bytes differ from Encode()")
	}
}

func TestWriteOK(t *testing.T) {
	sc := &scriptConn{}
	conn := NewConn(sc)

	if err := conn.WriteOK(5); err != nil {
		t.Fatalf("WriteOK() error: %v", err)
	}
	want := "RTSP/1.0 200 OK\r\nCSeq: 5\r\nServer: AirTunes/377.40.00\r\n\r\n"
	if sc.wrote.String() != want {
		t.Errorf("WriteOK() wrote %q, want %q", sc.wrote.String(), want)
	}
}
