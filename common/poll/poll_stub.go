//go:build !linux && !darwin

package poll

import "time"

type Poller struct{}

func New() (*Poller, error) {
	return nil, ErrUnsupported
}

func (p *Poller) Add(fd int, id uint64, interest Interest) error {
	return ErrUnsupported
}

func (p *Poller) Modify(fd int, id uint64, interest Interest) error {
	return ErrUnsupported
}

func (p *Poller) Remove(fd int) error {
	return ErrUnsupported
}

func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	return 0, ErrUnsupported
}

func (p *Poller) Wakeup() error {
	return ErrUnsupported
}

func (p *Poller) Close() error {
	return nil
}
