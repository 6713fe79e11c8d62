//go:build linux

package poll

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type Poller struct {
	epollFD int
	pipeFDs [2]int
	mutex   sync.Mutex
	closed  atomic.Bool
	events  []unix.EpollEvent
}

func New() (*Poller, error) {
	epollFD, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	var pipeFDs [2]int
	err = unix.Pipe2(pipeFDs[:], unix.O_NONBLOCK|unix.O_CLOEXEC)
	if err != nil {
		unix.Close(epollFD)
		return nil, err
	}

	pipeEvent := &unix.EpollEvent{Events: unix.EPOLLIN}
	*(*uint64)(unsafe.Pointer(&pipeEvent.Fd)) = 0
	err = unix.EpollCtl(epollFD, unix.EPOLL_CTL_ADD, pipeFDs[0], pipeEvent)
	if err != nil {
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(epollFD)
		return nil, err
	}

	return &Poller{
		epollFD: epollFD,
		pipeFDs: pipeFDs,
	}, nil
}

func epollEvent(id uint64, interest Interest) *unix.EpollEvent {
	event := &unix.EpollEvent{}
	if interest&Readable != 0 {
		event.Events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&Writable != 0 {
		event.Events |= unix.EPOLLOUT
	}
	*(*uint64)(unsafe.Pointer(&event.Fd)) = id
	return event
}

func (p *Poller) Add(fd int, id uint64, interest Interest) error {
	if id == 0 {
		return ErrReservedID
	}
	if p.closed.Load() {
		return ErrClosed
	}
	return unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_ADD, fd, epollEvent(id, interest))
}

func (p *Poller) Modify(fd int, id uint64, interest Interest) error {
	if id == 0 {
		return ErrReservedID
	}
	if p.closed.Load() {
		return ErrClosed
	}
	return unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_MOD, fd, epollEvent(id, interest))
}

func (p *Poller) Remove(fd int) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until at least one descriptor is ready, Wakeup is called or the
// timeout elapses. A negative timeout blocks indefinitely. An interrupted wait
// returns no events and no error.
func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if len(events) == 0 {
		return 0, nil
	}
	if cap(p.events) < len(events) {
		p.events = make([]unix.EpollEvent, len(events))
	}
	rawEvents := p.events[:len(events)]

	n, err := unix.EpollWait(p.epollFD, rawEvents, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	var count int
	var buffer [16]byte
	for i := 0; i < n; i++ {
		rawEvent := rawEvents[i]
		id := *(*uint64)(unsafe.Pointer(&rawEvent.Fd))
		if id == 0 {
			for {
				readN, readErr := unix.Read(p.pipeFDs[0], buffer[:])
				if readErr != nil || readN < len(buffer) {
					break
				}
			}
			continue
		}
		events[count] = Event{
			ID:       id,
			Readable: rawEvent.Events&unix.EPOLLIN != 0,
			Writable: rawEvent.Events&unix.EPOLLOUT != 0,
			Hangup:   rawEvent.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
			Error:    rawEvent.Events&unix.EPOLLERR != 0,
		}
		count++
	}
	return count, nil
}

// Wakeup interrupts a blocked Wait. It is safe to call from any goroutine.
func (p *Poller) Wakeup() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	_, err := unix.Write(p.pipeFDs[1], []byte{0})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// Close releases the poller. It must not race with Wait.
func (p *Poller) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed.Swap(true) {
		return nil
	}
	unix.Close(p.pipeFDs[0])
	unix.Close(p.pipeFDs[1])
	return unix.Close(p.epollFD)
}
