package litepool

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestBufferSize is how many bytes of a request are read; anything
// beyond it is ignored.
const RequestBufferSize = 1028

const (
	StatusOK                  = "HTTP/1.1 200 OK"
	StatusNotFound            = "HTTP/1.1 404 NOT FOUND"
	StatusInternalServerError = "HTTP/1.1 500 INTERNAL SERVER ERROR"
)

var ErrEmptyRequest = errors.New("empty request")

type Request struct {
	id         string
	remoteAddr string
	message    []byte
	receivedAt time.Time
}

func (r *Request) Id() string            { return r.id }
func (r *Request) RemoteAddr() string    { return r.remoteAddr }
func (r *Request) Payload() []byte       { return r.message }
func (r *Request) ReceivedAt() time.Time { return r.receivedAt }

// Line returns the request line without its trailing CRLF
func (r *Request) Line() string {
	line, _, _ := bytes.Cut(r.message, []byte("\r\n"))
	return string(line)
}

func NewRequest(message []byte, remoteAddr string) *Request {
	return &Request{
		id:         ulid.Make().String(),
		remoteAddr: remoteAddr,
		message:    message,
		receivedAt: time.Now(),
	}
}

// ReadRequest does a single read of up to RequestBufferSize bytes from conn.
func ReadRequest(conn net.Conn, timeout time.Duration) (*Request, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}

	buffer := make([]byte, RequestBufferSize)
	n, err := conn.Read(buffer)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, ErrEmptyRequest
		}
		return nil, err
	}

	return NewRequest(buffer[:n], conn.RemoteAddr().String()), nil
}

type Response struct {
	Status string

	// file under the server root used as the body, empty for no body
	File string
}

// Write sends the status line, a Content-Length header and body, then flushes.
func (r *Response) Write(w io.Writer, body []byte) (int, error) {
	bw := bufio.NewWriter(w)
	n, err := fmt.Fprintf(bw, "%s\r\nContent-Length: %d\r\n\r\n%s", r.Status, len(body), body)
	if err != nil {
		return n, err
	}
	return n, bw.Flush()
}
