package fetch

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Response is the content received for one request. An empty response is
// also what an unknown name looks like.
type Response struct {
	name string
	data []byte
}

func (r *Response) Name() string {
	return r.name
}

func (r *Response) Bytes() []byte {
	return r.data
}

func (r *Response) Len() int {
	return len(r.data)
}

func (r *Response) Empty() bool {
	return len(r.data) == 0
}

// Sum returns the BLAKE3-256 digest of the content.
func (r *Response) Sum() [32]byte {
	return blake3.Sum256(r.data)
}

func (r *Response) HexSum() string {
	sum := r.Sum()
	return hex.EncodeToString(sum[:])
}
