package byteformats_test

import (
	"testing"

	"github.com/sagernet/sing-fetch/common/byteformats"
	"github.com/sagernet/sing-fetch/common/json"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	t.Parallel()
	for input, want := range map[string]uint64{
		"1024":   1024,
		"4 KiB":  4 << 10,
		"64MiB":  64 << 20,
		"2k":     2048,
		"1kb":    1000,
		" 1GiB ": 1 << 30,
	} {
		size, err := byteformats.ParseSize(input)
		require.NoError(t, err, input)
		require.Equal(t, want, size, input)
	}
	for _, input := range []string{"", "MiB", "12 parsecs"} {
		_, err := byteformats.ParseSize(input)
		require.Error(t, err, input)
	}
}

func TestSizeJSON(t *testing.T) {
	t.Parallel()
	var options struct {
		Buffer byteformats.Size `json:"buffer"`
		Limit  byteformats.Size `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"buffer": 4096, "limit": "64 MiB"}`), &options))
	require.Equal(t, 4096, options.Buffer.Value())
	require.Equal(t, 64<<20, options.Limit.Value())
	require.Error(t, json.Unmarshal([]byte(`{"buffer": true}`), &options))
}

func TestSizeFlag(t *testing.T) {
	t.Parallel()
	var size byteformats.Size
	require.NoError(t, size.Set("8KiB"))
	require.Equal(t, 8192, size.Value())
	require.Equal(t, "size", size.Type())
	require.Equal(t, "8.0 KiB", size.String())
}

func TestFormatIBytes(t *testing.T) {
	t.Parallel()
	require.Equal(t, "7 B", byteformats.FormatIBytes(7))
	require.Equal(t, "1.0 KiB", byteformats.FormatIBytes(1024))
	require.Equal(t, "64 MiB", byteformats.FormatIBytes(64<<20))
}
