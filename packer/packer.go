// Package packer encodes values stored in blob columns.
package packer

import "github.com/vmihailenco/msgpack/v5"

func EncodeMessage(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func DecodeMessage(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}
