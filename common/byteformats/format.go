package byteformats

import (
	"fmt"
	"math"
)

var iUnitNames = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatIBytes renders s with binary units, one decimal below ten.
func FormatIBytes(s uint64) string {
	if s < 10 {
		return fmt.Sprintf("%d B", s)
	}
	e := math.Floor(math.Log(float64(s)) / math.Log(1024))
	value := math.Floor(float64(s)/math.Pow(1024, e)*10+0.5) / 10
	format := "%.0f %s"
	if value < 10 {
		format = "%.1f %s"
	}
	return fmt.Sprintf(format, value, iUnitNames[int(e)])
}
