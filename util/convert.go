package util

import (
	"github.com/nihilopp/petro/storage/disk"
	"github.com/vmihailenco/msgpack"
)

// ToByteSlice msgpack-encodes obj into a page-sized buffer. Used only for
// the header page, which has no fixed-offset layout constraint — every
// other page uses storage/page's bit-exact accessors instead.
func ToByteSlice[T any](obj T) ([]byte, error) {
	res := make([]byte, disk.PageSize)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > disk.PageSize {
		return nil, ErrPageOverflow
	}
	copy(res, data)

	return res, nil
}

// ToStruct decodes a page buffer previously produced by ToByteSlice. A
// buffer that was never written through ToByteSlice (all zeros, as
// DiskManager hands back for a page it has never flushed) isn't valid
// msgpack. Any Unmarshal error is swallowed and res is returned as far as
// it was decoded (its zero value for a never-written page), so the header
// page decoder sees "never written" as "empty", not as an error.
func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, nil
	}

	return res, nil
}
