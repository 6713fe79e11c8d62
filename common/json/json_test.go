package json_test

import (
	"testing"
	"time"

	"github.com/sagernet/sing-fetch/common/json"
	"github.com/sagernet/sing-fetch/common/json/badoption"

	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	t.Parallel()
	for _, testCase := range []struct {
		input string
		want  string
	}{
		{`{"path": "../../foo"}`, `{"path": "../../foo"}`},
		{`{"url": "http://example.com/a"}`, `{"url": "http://example.com/a"}`},
		{`{"s": "a\"//b"}`, `{"s": "a\"//b"}`},
		{"{\n// comment\n\"a\": 1}", "{\n          \n\"a\": 1}"},
		{"{\n# x\n\"a\": 1}", "{\n   \n\"a\": 1}"},
		{"{/* c */\"a\": 1}", "{       \"a\": 1}"},
		{"{/*\n*/\"a\": 1}", "{  \n  \"a\": 1}"},
		{`{"a": 1}/`, `{"a": 1}/`},
	} {
		require.Equal(t, testCase.want, string(json.StripComments([]byte(testCase.input))), "input %q", testCase.input)
	}
}

type config struct {
	Host    string             `json:"host"`
	Port    uint16             `json:"port"`
	Timeout badoption.Duration `json:"timeout"`
}

func TestUnmarshalExtended(t *testing.T) {
	t.Parallel()
	var options config
	err := json.UnmarshalExtended([]byte(`{
  // where to listen
  "host": "127.0.0.1", /* loopback */
  "port": 3000,
  "timeout": "50ms"
}`), &options)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", options.Host)
	require.Equal(t, uint16(3000), options.Port)
	require.Equal(t, 50*time.Millisecond, options.Timeout.Build())

	err = json.UnmarshalExtended([]byte(`{"hots": "x"}`), &options)
	require.ErrorContains(t, err, "hots")

	err = json.UnmarshalExtended([]byte("{\n  \"host\": ,\n}"), &options)
	require.ErrorContains(t, err, "row 2")
}

func TestDuration(t *testing.T) {
	t.Parallel()
	content, err := json.Marshal(badoption.Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, `"1.5s"`, string(content))

	var duration badoption.Duration
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &duration))
	require.Error(t, json.Unmarshal([]byte(`50`), &duration))
}
