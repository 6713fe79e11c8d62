package buf

import (
	"io"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

const DefaultSize = 1024

var ErrBufferLimit = E.New("buffer limit exceeded")

// Buffer is a growable byte accumulator. Bytes are appended at end and
// consumed from start; Grow doubles the capacity without moving either cursor.
type Buffer struct {
	data        []byte
	start       int
	end         int
	limit       int
	dataManaged bool
}

func New() *Buffer {
	return NewSize(DefaultSize)
}

func NewSize(size int) *Buffer {
	return NewLimited(size, 0)
}

// NewLimited creates a buffer that refuses to grow past limit bytes.
// A limit of zero means unbounded.
func NewLimited(size int, limit int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	if limit > 0 && size > limit {
		size = limit
	}
	data, managed := Make(size)
	return &Buffer{
		data:        data,
		limit:       limit,
		dataManaged: managed,
	}
}

// As wraps data as a fully written, unmanaged buffer.
func As(data []byte) *Buffer {
	return &Buffer{
		data: data,
		end:  len(data),
	}
}

func (b *Buffer) Write(data []byte) (n int, err error) {
	if len(data) == 0 {
		return
	}
	if b.IsFull() {
		return 0, io.ErrShortBuffer
	}
	n = copy(b.data[b.end:], data)
	b.end += n
	return
}

func (b *Buffer) WriteString(s string) (n int, err error) {
	if len(s) == 0 {
		return
	}
	if b.IsFull() {
		return 0, io.ErrShortBuffer
	}
	n = copy(b.data[b.end:], s)
	b.end += n
	return
}

// Append writes all of data, growing the buffer as often as needed.
func (b *Buffer) Append(data []byte) error {
	for len(data) > 0 {
		if b.IsFull() {
			if err := b.Grow(); err != nil {
				return err
			}
		}
		n, _ := b.Write(data)
		data = data[n:]
	}
	return nil
}

// Grow doubles the capacity. Written bytes and both cursors are preserved.
func (b *Buffer) Grow() error {
	capacity := len(b.data)
	newCapacity := capacity * 2
	if newCapacity == 0 {
		newCapacity = DefaultSize
	}
	if b.limit > 0 && newCapacity > b.limit {
		if capacity >= b.limit {
			return E.Extend(ErrBufferLimit, "limit ", b.limit)
		}
		newCapacity = b.limit
	}
	data, managed := Make(newCapacity)
	copy(data, b.data[:b.end])
	b.releaseData()
	b.data = data
	b.dataManaged = managed
	return nil
}

// CanGrow reports whether Grow would succeed.
func (b *Buffer) CanGrow() bool {
	return b.limit <= 0 || len(b.data) < b.limit
}

// GrowIfFull grows the buffer only when no free space is left.
func (b *Buffer) GrowIfFull() (bool, error) {
	if !b.IsFull() {
		return false, nil
	}
	return true, b.Grow()
}

func (b *Buffer) ReadOnceFrom(r io.Reader) (int, error) {
	if b.IsFull() {
		return 0, io.ErrShortBuffer
	}
	n, err := r.Read(b.FreeBytes())
	b.end += n
	return n, err
}

// ReadChunkFrom reads until the buffer is full, the reader returns no data
// or an error. io.EOF is returned as is.
func (b *Buffer) ReadChunkFrom(r io.Reader) (n int, err error) {
	for !b.IsFull() {
		var readN int
		readN, err = r.Read(b.FreeBytes())
		b.end += readN
		n += readN
		if err != nil || readN == 0 {
			return
		}
	}
	return
}

func (b *Buffer) Read(data []byte) (n int, err error) {
	if b.IsEmpty() {
		return 0, io.EOF
	}
	n = copy(data, b.data[b.start:b.end])
	b.start += n
	return
}

func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	b.start += n
	return int64(n), err
}

func (b *Buffer) Advance(n int) {
	b.start += n
	if b.start > b.end {
		b.start = b.end
	}
}

func (b *Buffer) Reset() {
	b.start = 0
	b.end = 0
}

func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.releaseData()
	*b = Buffer{}
}

func (b *Buffer) releaseData() {
	if b.dataManaged {
		_ = Put(b.data)
		b.dataManaged = false
	}
}

func (b *Buffer) Start() int {
	return b.start
}

func (b *Buffer) Len() int {
	return b.end - b.start
}

func (b *Buffer) Cap() int {
	return len(b.data)
}

func (b *Buffer) Limit() int {
	return b.limit
}

func (b *Buffer) Bytes() []byte {
	return b.data[b.start:b.end]
}

func (b *Buffer) FreeLen() int {
	return len(b.data) - b.end
}

func (b *Buffer) FreeBytes() []byte {
	return b.data[b.end:]
}

func (b *Buffer) IsEmpty() bool {
	return b.end-b.start == 0
}

func (b *Buffer) IsFull() bool {
	return b.end == len(b.data)
}

// ToOwned copies the unread bytes into a slice that outlives the buffer.
func (b *Buffer) ToOwned() []byte {
	owned := make([]byte, b.Len())
	copy(owned, b.Bytes())
	return owned
}
