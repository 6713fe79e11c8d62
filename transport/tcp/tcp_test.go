//go:build linux || darwin

package tcp

import (
	"context"
	"io"
	"net/netip"
	"strconv"
	"testing"
	"time"

	E "github.com/sagernet/sing-fetch/common/exceptions"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var loopback = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 0)

func acceptOne(t *testing.T, listener *Listener) *Endpoint {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		endpoint, err := listener.Accept()
		require.NoError(t, err)
		if endpoint != nil {
			return endpoint
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func readAll(t *testing.T, endpoint *Endpoint) []byte {
	var data []byte
	buffer := make([]byte, 64)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := endpoint.Read(buffer)
		data = append(data, buffer[:n]...)
		if err == io.EOF {
			return data
		}
		require.NoError(t, err)
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("no end of stream")
	return nil
}

func TestListenDialAccept(t *testing.T) {
	t.Parallel()
	listener, err := Listen(loopback)
	require.NoError(t, err)
	defer listener.Close()
	require.NotZero(t, listener.Addr().Port())

	endpoint, err := listener.Accept()
	require.NoError(t, err)
	require.Nil(t, endpoint)

	client, err := Dial(context.Background(), listener.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, listener.Addr(), client.RemoteAddr())

	server := acceptOne(t, listener)
	defer server.Close()
	require.Equal(t, client.LocalAddr(), server.RemoteAddr())

	buffer := make([]byte, 16)
	n, err := server.Read(buffer)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = client.Write([]byte("greeting.txt"))
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.NoError(t, client.CloseWrite())
	require.Equal(t, "greeting.txt", string(readAll(t, server)))
}

func TestDialRefused(t *testing.T) {
	t.Parallel()
	listener, err := Listen(loopback)
	require.NoError(t, err)
	addr := listener.Addr()
	require.NoError(t, listener.Close())

	_, err = Dial(context.Background(), addr, WithDialTimeout(2*time.Second))
	require.Error(t, err)
}

func TestDialCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// 192.0.2.0/24 is reserved for documentation and never answers.
	_, err := Dial(ctx, netip.MustParseAddrPort("192.0.2.1:3000"))
	require.Error(t, err)
}

func TestConnectTimeoutIsTimeout(t *testing.T) {
	t.Parallel()
	err := E.Cause(ErrConnectTimeout, "connect 192.0.2.1:3000")
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.True(t, E.IsTimeout(err))
	require.False(t, E.IsTimeout(E.Cause(unix.ECONNREFUSED, "connect")))
}

func TestEndpointClose(t *testing.T) {
	t.Parallel()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])
	endpoint, err := NewEndpoint(fds[0], netip.AddrPort{})
	require.NoError(t, err)
	require.Equal(t, "fd:"+strconv.Itoa(fds[0]), endpoint.String())
	require.NoError(t, endpoint.Close())
	require.NoError(t, endpoint.Close())
	require.True(t, endpoint.IsClosed())
	_, err = endpoint.Write([]byte("x"))
	require.ErrorIs(t, err, unix.EBADF)
}

func TestResolveAddr(t *testing.T) {
	t.Parallel()
	addr, err := ResolveAddr("127.0.0.1", 3000)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3000", addr.String())

	addr, err = ResolveAddr("", 3000)
	require.NoError(t, err)
	require.True(t, addr.Addr().IsUnspecified())

	addr, err = ResolveAddr("::ffff:127.0.0.1", 80)
	require.NoError(t, err)
	require.True(t, addr.Addr().Is4())
}
