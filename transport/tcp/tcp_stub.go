//go:build !linux && !darwin

package tcp

import (
	"context"
	"net/netip"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

var ErrUnsupported = E.New("tcp: platform not supported")

type Endpoint struct{}

func (e *Endpoint) FD() int                    { return -1 }
func (e *Endpoint) LocalAddr() netip.AddrPort  { return netip.AddrPort{} }
func (e *Endpoint) RemoteAddr() netip.AddrPort { return netip.AddrPort{} }
func (e *Endpoint) String() string             { return "unsupported" }
func (e *Endpoint) Read(p []byte) (int, error) { return 0, ErrUnsupported }
func (e *Endpoint) Write(p []byte) (int, error) {
	return 0, ErrUnsupported
}
func (e *Endpoint) CloseWrite() error { return ErrUnsupported }
func (e *Endpoint) Close() error      { return nil }
func (e *Endpoint) IsClosed() bool    { return true }

type Listener struct{}

func Listen(bind netip.AddrPort, optionList ...Option) (*Listener, error) {
	return nil, ErrUnsupported
}

func (l *Listener) FD() int                     { return -1 }
func (l *Listener) Addr() netip.AddrPort        { return netip.AddrPort{} }
func (l *Listener) Accept() (*Endpoint, error)  { return nil, ErrUnsupported }
func (l *Listener) Close() error                { return nil }
func (l *Listener) IsClosed() bool              { return true }

func Dial(ctx context.Context, remote netip.AddrPort, optionList ...Option) (*Endpoint, error) {
	return nil, ErrUnsupported
}

func ResolveAddr(host string, port uint16) (netip.AddrPort, error) {
	return netip.AddrPort{}, ErrUnsupported
}
