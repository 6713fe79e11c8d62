package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorSizeClasses(t *testing.T) {
	t.Parallel()
	for _, size := range []int{1, 63, 64, 65, 1000, 1024, 1025, 65536} {
		buffer := Get(size)
		require.Len(t, buffer, size)
		require.GreaterOrEqual(t, cap(buffer), size)
		require.Zero(t, cap(buffer)&(cap(buffer)-1), "capacity %d is not a power of two", cap(buffer))
		require.NoError(t, Put(buffer))
	}
	require.Nil(t, Get(0))
	require.Nil(t, Get(MaxPooledSize+1))
	require.Error(t, Put(make([]byte, 100)))
}

func TestMake(t *testing.T) {
	t.Parallel()
	buffer, managed := Make(MaxPooledSize * 2)
	require.False(t, managed)
	require.Len(t, buffer, MaxPooledSize*2)

	buffer, managed = Make(10)
	require.True(t, managed)
	require.Len(t, buffer, 10)
}
