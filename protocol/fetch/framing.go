package fetch

import (
	"bytes"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

// Framing decides where a request name ends.
//
// With FramingRaw the name is whatever the server can read before the socket
// would block, with no prefix or terminator. FramingLine terminates the name
// with '\n'.
type Framing uint8

const (
	FramingRaw Framing = iota
	FramingLine
)

func ParseFraming(name string) (Framing, error) {
	switch name {
	case "", "raw":
		return FramingRaw, nil
	case "line":
		return FramingLine, nil
	default:
		return 0, E.New("unknown framing: ", name)
	}
}

func (f Framing) String() string {
	switch f {
	case FramingRaw:
		return "raw"
	case FramingLine:
		return "line"
	default:
		return "unknown"
	}
}

func (f Framing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Framing) UnmarshalText(text []byte) error {
	framing, err := ParseFraming(string(text))
	if err != nil {
		return err
	}
	*f = framing
	return nil
}

// EncodeRequest returns the bytes a client sends for name.
func (f Framing) EncodeRequest(name string) []byte {
	request := []byte(name)
	if f == FramingLine {
		request = append(request, '\n')
	}
	return request
}

// splitLine returns the name before the first '\n', without a trailing '\r'.
func splitLine(data []byte) (string, bool) {
	index := bytes.IndexByte(data, '\n')
	if index < 0 {
		return "", false
	}
	return string(bytes.TrimSuffix(data[:index], []byte{'\r'})), true
}
