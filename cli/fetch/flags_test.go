package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	E "github.com/sagernet/sing-fetch/common/exceptions"
	F "github.com/sagernet/sing-fetch/protocol/fetch"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func parseClientFlags(t *testing.T, args ...string) (*flags, error) {
	t.Helper()
	f := new(flags)
	command := &cobra.Command{Use: "client"}
	f.bindCommon(command)
	f.bindClient(command)
	f.bindServer(command)
	require.NoError(t, command.ParseFlags(args))
	return f, f.load(command)
}

func TestFlagsDefaults(t *testing.T) {
	f, err := parseClientFlags(t)
	require.NoError(t, err)
	require.Equal(t, "localhost", f.Host)
	require.Equal(t, uint16(3000), f.Port)
	require.Equal(t, "test.txt", f.Filename)
	require.Equal(t, ".", f.Root)
	require.Equal(t, F.FramingRaw, f.Framing)
	require.Equal(t, 50*time.Millisecond, f.PollTimeout.Build())
}

func TestFlagsOverrideConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "fetch.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  // shared between client and server
  "host": "127.0.0.1",
  "port": 4000,
  "filename": "greeting.txt",
  "framing": "line",
  "max_buffer_size": "1 MiB",
  "poll_timeout": "20ms",
  "dial_timeout": "2s",
  "xz": true
}`), 0o644))

	f, err := parseClientFlags(t, "-c", configPath, "--port", "5000", "--buffer-size", "4KiB")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", f.Host)
	require.Equal(t, uint16(5000), f.Port)
	require.Equal(t, "greeting.txt", f.Filename)
	require.Equal(t, F.FramingLine, f.Framing)
	require.Equal(t, 4096, f.BufferSize.Value())
	require.Equal(t, 1<<20, f.MaxBufferSize.Value())
	require.Equal(t, 20*time.Millisecond, f.PollTimeout.Build())
	require.Equal(t, 2*time.Second, f.DialTimeout.Build())
	require.True(t, f.XZ)

	options := f.clientOptions()
	require.Equal(t, uint16(5000), options.Port)
	require.Equal(t, F.FramingLine, options.Framing)
	serverOptions := f.serverOptions()
	require.True(t, serverOptions.XZ)
	require.Equal(t, ".", serverOptions.Root)
}

func TestFlagsRejectBadInput(t *testing.T) {
	_, err := parseClientFlags(t, "--framing", "length")
	require.Error(t, err)

	configPath := filepath.Join(t.TempDir(), "fetch.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"hostname": "x"}`), 0o644))
	_, err = parseClientFlags(t, "-c", configPath)
	require.ErrorContains(t, err, "hostname")

	_, err = parseClientFlags(t, "-c", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestUnknownArgumentPrintsUsage(t *testing.T) {
	command := newCommand()
	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&output)
	command.SetArgs([]string{"download"})
	require.NoError(t, command.Execute())
	require.Contains(t, output.String(), "Usage:")
	require.Contains(t, output.String(), "client")
	require.Contains(t, output.String(), "server")
}

func TestNormalizeArgs(t *testing.T) {
	require.Equal(t, []string{"client", "--name", "A.TXT"}, normalizeArgs([]string{"CLIENT", "--name", "A.TXT"}))
	require.Equal(t, []string{"--Verbose"}, normalizeArgs([]string{"--Verbose"}))
	require.Empty(t, normalizeArgs(nil))
}

func TestSubcommandIgnoresCase(t *testing.T) {
	command := newCommand()
	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&output)
	command.SetArgs(normalizeArgs([]string{"SERVER", "--help"}))
	require.NoError(t, command.Execute())
	require.Contains(t, output.String(), "Serve files from a directory")
}

func TestDescribeFetchError(t *testing.T) {
	f, err := parseClientFlags(t, "--host", "127.0.0.1", "--dial-timeout", "1s")
	require.NoError(t, err)
	require.Equal(t, time.Second, f.clientOptions().DialTimeout.Build())

	timeout := E.Cause(context.DeadlineExceeded, "fetch test.txt")
	described := describeFetchError(f, timeout)
	require.ErrorIs(t, described, context.DeadlineExceeded)
	require.ErrorContains(t, described, "127.0.0.1:3000 did not answer in time")

	refused := E.New("connect refused")
	require.Equal(t, refused, describeFetchError(f, refused))
}
