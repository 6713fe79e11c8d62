package buf

// Size classes follow https://github.com/xtaci/smux/blob/master/alloc.go

import (
	"math/bits"
	"sync"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

const (
	minClassShift = 6
	maxClassShift = 16
	MaxPooledSize = 1 << maxClassShift
)

var DefaultAllocator Allocator = newClassAllocator()

type Allocator interface {
	Get(size int) []byte
	Put(buffer []byte) error
}

// classAllocator keeps one pool per power of two between 64 B and 64 KiB, so
// the space wasted by rounding up is below 50%.
type classAllocator struct {
	classes [maxClassShift - minClassShift + 1]sync.Pool
}

func newClassAllocator() *classAllocator {
	alloc := new(classAllocator)
	for index := range alloc.classes {
		size := 1 << (index + minClassShift)
		alloc.classes[index].New = func() any {
			buffer := make([]byte, size)
			return &buffer
		}
	}
	return alloc
}

func (a *classAllocator) Get(size int) []byte {
	if size <= 0 || size > MaxPooledSize {
		return nil
	}
	buffer := a.classes[classOf(size)].Get().(*[]byte)
	return (*buffer)[:size]
}

// Put returns a buffer obtained from Get. Its capacity must be exactly 2^n.
func (a *classAllocator) Put(buffer []byte) error {
	size := cap(buffer)
	if size < 1<<minClassShift || size > MaxPooledSize || size&(size-1) != 0 {
		return E.New("allocator: incorrect buffer size ", size)
	}
	buffer = buffer[:size]
	a.classes[classOf(size)].Put(&buffer)
	return nil
}

func classOf(size int) int {
	if size <= 1<<minClassShift {
		return 0
	}
	return bits.Len(uint(size-1)) - minClassShift
}
