package buf

func Get(size int) []byte {
	return DefaultAllocator.Get(size)
}

func Put(buffer []byte) error {
	return DefaultAllocator.Put(buffer)
}

// Make allocates size bytes, from the pool when the size is poolable.
// The second result tells whether the slice must be returned with Put.
func Make(size int) ([]byte, bool) {
	if size > 0 && size <= MaxPooledSize {
		return Get(size), true
	}
	return make([]byte, size), false
}
