//go:build darwin

package poll

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type kqueueEntry struct {
	id       uint64
	interest Interest
}

type Poller struct {
	kqueueFD int
	pipeFDs  [2]int
	mutex    sync.Mutex
	closed   atomic.Bool
	entries  map[int]kqueueEntry
	events   []unix.Kevent_t
}

func New() (*Poller, error) {
	kqueueFD, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	var pipeFDs [2]int
	err = unix.Pipe(pipeFDs[:])
	if err != nil {
		unix.Close(kqueueFD)
		return nil, err
	}
	closeAll := func() {
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(kqueueFD)
	}
	for _, fd := range pipeFDs {
		err = unix.SetNonblock(fd, true)
		if err != nil {
			closeAll()
			return nil, err
		}
		unix.CloseOnExec(fd)
	}

	_, err = unix.Kevent(kqueueFD, []unix.Kevent_t{{
		Ident:  uint64(pipeFDs[0]),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}}, nil, nil)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &Poller{
		kqueueFD: kqueueFD,
		pipeFDs:  pipeFDs,
		entries:  make(map[int]kqueueEntry),
	}, nil
}

func changes(fd int, interest Interest, flags uint16) []unix.Kevent_t {
	var list []unix.Kevent_t
	if interest&Readable != 0 {
		list = append(list, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if interest&Writable != 0 {
		list = append(list, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return list
}

func (p *Poller) Add(fd int, id uint64, interest Interest) error {
	if id == 0 {
		return ErrReservedID
	}
	if p.closed.Load() {
		return ErrClosed
	}
	if list := changes(fd, interest, unix.EV_ADD); len(list) > 0 {
		if _, err := unix.Kevent(p.kqueueFD, list, nil, nil); err != nil {
			return err
		}
	}
	p.entries[fd] = kqueueEntry{id, interest}
	return nil
}

func (p *Poller) Modify(fd int, id uint64, interest Interest) error {
	if id == 0 {
		return ErrReservedID
	}
	if p.closed.Load() {
		return ErrClosed
	}
	entry, loaded := p.entries[fd]
	if !loaded {
		return unix.ENOENT
	}
	var list []unix.Kevent_t
	list = append(list, changes(fd, entry.interest&^interest, unix.EV_DELETE)...)
	list = append(list, changes(fd, interest&^entry.interest, unix.EV_ADD)...)
	if len(list) > 0 {
		if _, err := unix.Kevent(p.kqueueFD, list, nil, nil); err != nil {
			return err
		}
	}
	p.entries[fd] = kqueueEntry{id, interest}
	return nil
}

func (p *Poller) Remove(fd int) error {
	if p.closed.Load() {
		return ErrClosed
	}
	entry, loaded := p.entries[fd]
	if !loaded {
		return unix.ENOENT
	}
	delete(p.entries, fd)
	if list := changes(fd, entry.interest, unix.EV_DELETE); len(list) > 0 {
		_, err := unix.Kevent(p.kqueueFD, list, nil, nil)
		return err
	}
	return nil
}

func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if len(events) == 0 {
		return 0, nil
	}
	if cap(p.events) < len(events) {
		p.events = make([]unix.Kevent_t, len(events))
	}
	rawEvents := p.events[:len(events)]

	var timespec *unix.Timespec
	if timeout >= 0 {
		ts := unix.NsecToTimespec(int64(timeout))
		timespec = &ts
	}
	n, err := unix.Kevent(p.kqueueFD, nil, rawEvents, timespec)
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
		fd := int(rawEvent.Ident)
		if fd == p.pipeFDs[0] {
			for {
				readN, readErr := unix.Read(p.pipeFDs[0], buffer[:])
				if readErr != nil || readN < len(buffer) {
					break
				}
			}
			continue
		}
		entry, loaded := p.entries[fd]
		if !loaded {
			continue
		}
		events[count] = Event{
			ID:       entry.id,
			Readable: rawEvent.Filter == unix.EVFILT_READ,
			Writable: rawEvent.Filter == unix.EVFILT_WRITE,
			Hangup:   rawEvent.Flags&unix.EV_EOF != 0,
			Error:    rawEvent.Flags&unix.EV_ERROR != 0,
		}
		count++
	}
	return count, nil
}

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

func (p *Poller) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed.Swap(true) {
		return nil
	}
	unix.Close(p.pipeFDs[0])
	unix.Close(p.pipeFDs[1])
	return unix.Close(p.kqueueFD)
}
