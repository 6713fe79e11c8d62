package fetch_test

import (
	"bytes"
	"io"

	"github.com/sagernet/sing-fetch/common/poll"
)

// fakeEndpoint replays scripted reads and accepts at most writeLimit bytes
// per write. An exhausted script reads as would-block unless eof is set.
type fakeEndpoint struct {
	reads      [][]byte
	readErr    error
	eof        bool
	writeLimit int
	writeErr   error
	written    bytes.Buffer
	writeCalls int
	closed     bool
}

func (e *fakeEndpoint) Read(p []byte) (int, error) {
	if e.closed {
		return 0, io.ErrClosedPipe
	}
	if len(e.reads) == 0 {
		if e.readErr != nil {
			return 0, e.readErr
		}
		if e.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, e.reads[0])
	e.reads[0] = e.reads[0][n:]
	if len(e.reads[0]) == 0 {
		e.reads = e.reads[1:]
	}
	return n, nil
}

func (e *fakeEndpoint) Write(p []byte) (int, error) {
	if e.closed {
		return 0, io.ErrClosedPipe
	}
	if e.writeErr != nil {
		return 0, e.writeErr
	}
	e.writeCalls++
	if e.writeLimit > 0 && len(p) > e.writeLimit {
		p = p[:e.writeLimit]
	}
	return e.written.Write(p)
}

func (e *fakeEndpoint) Close() error {
	e.closed = true
	return nil
}

func (e *fakeEndpoint) String() string {
	return "fake"
}

type fakeRegistration struct {
	interest  poll.Interest
	cancelled bool
}

func (r *fakeRegistration) SetInterest(interest poll.Interest) error {
	r.interest = interest
	return nil
}

func (r *fakeRegistration) Cancel() error {
	r.cancelled = true
	return nil
}

var (
	readableEvent = poll.Event{ID: 1, Readable: true}
	writableEvent = poll.Event{ID: 1, Writable: true}
)
