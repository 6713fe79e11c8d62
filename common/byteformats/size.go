package byteformats

import (
	"strconv"
	"strings"

	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/json"
)

const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

const (
	KByte = Byte * 1000
	MByte = KByte * 1000
	GByte = MByte * 1000
)

var unitTable = map[string]uint64{
	"":    Byte,
	"b":   Byte,
	"k":   KiByte,
	"kb":  KByte,
	"ki":  KiByte,
	"kib": KiByte,
	"m":   MiByte,
	"mb":  MByte,
	"mi":  MiByte,
	"mib": MiByte,
	"g":   GiByte,
	"gb":  GByte,
	"gi":  GiByte,
	"gib": GiByte,
}

// ParseSize reads sizes such as "1024", "4 KiB" or "64MiB". Bare k, m and g
// are binary units.
func ParseSize(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	unitIndex := len(value)
	for i, c := range value {
		if c < '0' || c > '9' {
			unitIndex = i
			break
		}
	}
	if unitIndex == 0 {
		return 0, E.New("invalid size: ", value)
	}
	number, err := strconv.ParseUint(value[:unitIndex], 10, 64)
	if err != nil {
		return 0, E.Cause(err, "parse ", value[:unitIndex])
	}
	rawUnit := value[unitIndex:]
	unitValue, loaded := unitTable[strings.ToLower(strings.TrimSpace(rawUnit))]
	if !loaded {
		return 0, E.New("unsupported unit: ", rawUnit)
	}
	return number * unitValue, nil
}

// Size is a byte count configured as a number or a string with a unit.
type Size uint64

func (s Size) Value() int {
	return int(s)
}

func (s Size) String() string {
	return FormatIBytes(uint64(s))
}

func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(s))
}

func (s *Size) UnmarshalJSON(content []byte) error {
	var number uint64
	err := json.Unmarshal(content, &number)
	if err == nil {
		*s = Size(number)
		return nil
	}
	var value string
	err = json.Unmarshal(content, &value)
	if err != nil {
		return err
	}
	size, err := ParseSize(value)
	if err != nil {
		return err
	}
	*s = Size(size)
	return nil
}

// Set and Type let a Size back a command line flag.
func (s *Size) Set(value string) error {
	size, err := ParseSize(value)
	if err != nil {
		return err
	}
	*s = Size(size)
	return nil
}

func (s *Size) Type() string {
	return "size"
}
