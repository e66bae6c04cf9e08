package extract

import (
	"strconv"
	"time"
)

// TimeLayout renders export timestamps as YYYY/MM/DD HH:MM:SS.
const TimeLayout = "2006/01/02 15:04:05"

// FormatTimestamp renders a millisecond epoch timestamp in loc, truncating
// to whole seconds toward negative infinity. Values that are not integers are
// returned unchanged with ok set to false.
func FormatTimestamp(s string, loc *time.Location) (out string, ok bool) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s, false
	}
	if loc == nil {
		loc = time.Local
	}

	sec := ms / 1000
	if ms%1000 < 0 {
		sec--
	}
	return time.Unix(sec, 0).In(loc).Format(TimeLayout), true
}
