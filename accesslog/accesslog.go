package accesslog

import (
	"context"
	"time"

	"github.com/jirevwe/litepool/packer"
	"github.com/oklog/ulid/v2"
)

const (
	// Rfc3339Milli is like time.RFC3339Nano, but with millisecond precision
	Rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"
)

type Store interface {
	// Record appends an entry to the log
	Record(context.Context, *Entry) error

	// List returns the newest entries first
	List(context.Context, int) ([]Entry, error)

	// Count returns the number of recorded entries
	Count(context.Context) (int, error)

	Close() error
}

// Entry is one served connection.
type Entry struct {
	Id          string        `json:"id" msgpack:"id"`
	RemoteAddr  string        `json:"remote_addr" msgpack:"remote_addr"`
	RequestLine string        `json:"request_line" msgpack:"request_line"`
	Status      string        `json:"status" msgpack:"status"`
	File        string        `json:"file" msgpack:"file"`
	Bytes       int           `json:"bytes" msgpack:"bytes"`
	Duration    time.Duration `json:"duration" msgpack:"duration"`
	CreatedAt   time.Time     `json:"created_at" msgpack:"created_at"`
}

func NewEntry(remoteAddr, requestLine string) *Entry {
	return &Entry{
		Id:          ulid.Make().String(),
		RemoteAddr:  remoteAddr,
		RequestLine: requestLine,
		CreatedAt:   time.Now().UTC(),
	}
}

func (e *Entry) Marshal() ([]byte, error) {
	return packer.EncodeMessage(e)
}

func (e *Entry) Unmarshal(b []byte) error {
	return packer.DecodeMessage(b, e)
}

func (e *Entry) CreatedAtString() string {
	return e.CreatedAt.UTC().Format(Rfc3339Milli)
}
