package fetch_test

import (
	"bytes"
	"io"
	"syscall"
	"testing"

	"github.com/sagernet/sing-fetch/common/buf"
	"github.com/sagernet/sing-fetch/common/poll"
	"github.com/sagernet/sing-fetch/protocol/fetch"

	"github.com/stretchr/testify/require"
)

func newClientConn(endpoint *fakeEndpoint, options fetch.ClientConnOptions) (*fetch.ClientConn, *fakeRegistration) {
	conn := fetch.NewClientConn(endpoint, options)
	registration := &fakeRegistration{interest: poll.Writable}
	conn.Bind(registration)
	return conn, registration
}

func TestClientConnFetch(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{writeLimit: 5}
	var done int
	conn, registration := newClientConn(endpoint, fetch.ClientConnOptions{
		Name:       "greeting.txt",
		BufferSize: 4,
		OnDone: func(*fetch.ClientConn) {
			done++
		},
	})
	require.Equal(t, fetch.StateSendingRequest, conn.State())

	conn.HandleEvent(writableEvent)
	require.Equal(t, fetch.StateSendingRequest, conn.State())
	conn.HandleEvent(writableEvent)
	conn.HandleEvent(writableEvent)
	require.Equal(t, fetch.StateAwaitingResponse, conn.State())
	require.Equal(t, poll.Readable, registration.interest)
	require.Equal(t, "greeting.txt", endpoint.written.String())

	_, err := conn.Result()
	require.Error(t, err)

	endpoint.reads = [][]byte{[]byte("hello"), []byte(" world")}
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateAwaitingResponse, conn.State())

	endpoint.eof = true
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateComplete, conn.State())
	data, err := conn.Result()
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
	require.Equal(t, int64(11), conn.BytesRead())
	require.True(t, endpoint.closed)
	require.True(t, registration.cancelled)
	require.Equal(t, 1, done)

	require.NoError(t, conn.Close())
	require.Equal(t, fetch.StateComplete, conn.State())
	require.Equal(t, 1, done)
}

func TestClientConnLineFraming(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{
		Name:    "greeting.txt",
		Framing: fetch.FramingLine,
	})
	conn.HandleEvent(writableEvent)
	require.Equal(t, "greeting.txt\n", endpoint.written.String())
}

func TestClientConnEmptyResponse(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{eof: true}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{Name: "missing.txt"})
	conn.HandleEvent(writableEvent)
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateComplete, conn.State())
	data, err := conn.Result()
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestClientConnGrowsLargeResponse(t *testing.T) {
	t.Parallel()
	content := bytes.Repeat([]byte("0123456789"), 1000)
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{Name: "blob", BufferSize: 4})
	conn.HandleEvent(writableEvent)
	endpoint.reads = [][]byte{content}
	endpoint.eof = true
	conn.HandleEvent(readableEvent)
	data, err := conn.Result()
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestClientConnResponseLimit(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{
		Name:          "blob",
		BufferSize:    4,
		MaxBufferSize: 16,
	})
	conn.HandleEvent(writableEvent)
	endpoint.reads = [][]byte{bytes.Repeat([]byte("x"), 32)}
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateClosed, conn.State())
	_, err := conn.Result()
	require.ErrorIs(t, err, buf.ErrBufferLimit)
}

func TestClientConnResponseExactlyAtLimit(t *testing.T) {
	t.Parallel()
	content := bytes.Repeat([]byte("x"), 32)
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{
		Name:          "blob",
		BufferSize:    4,
		MaxBufferSize: 32,
	})
	conn.HandleEvent(writableEvent)

	endpoint.reads = [][]byte{content}
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateAwaitingResponse, conn.State())
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateAwaitingResponse, conn.State())

	endpoint.eof = true
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateComplete, conn.State())
	data, err := conn.Result()
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestClientConnResponseOneOverLimit(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{
		Name:          "blob",
		BufferSize:    4,
		MaxBufferSize: 32,
	})
	conn.HandleEvent(writableEvent)
	endpoint.reads = [][]byte{bytes.Repeat([]byte("x"), 33)}
	endpoint.eof = true
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateClosed, conn.State())
	require.ErrorIs(t, conn.Err(), buf.ErrBufferLimit)
}

func TestClientConnReadError(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{readErr: syscall.ECONNRESET}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{Name: "greeting.txt"})
	conn.HandleEvent(writableEvent)
	conn.HandleEvent(readableEvent)
	require.Equal(t, fetch.StateClosed, conn.State())
	_, err := conn.Result()
	require.ErrorIs(t, err, syscall.ECONNRESET)
	require.True(t, endpoint.closed)
}

func TestClientConnWriteError(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{writeErr: io.ErrClosedPipe}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{Name: "greeting.txt"})
	conn.HandleEvent(writableEvent)
	require.Equal(t, fetch.StateClosed, conn.State())
	require.ErrorIs(t, conn.Err(), io.ErrClosedPipe)
}

func TestClientConnHandleError(t *testing.T) {
	t.Parallel()
	endpoint := &fakeEndpoint{}
	conn, _ := newClientConn(endpoint, fetch.ClientConnOptions{Name: "greeting.txt"})
	conn.HandleError(io.ErrUnexpectedEOF)
	require.Equal(t, fetch.StateClosed, conn.State())
	_, err := conn.Result()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
