package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Count is an integer that producers send either as a JSON number or as a
// numeric string.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*c = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, strconv.IntSize); err == nil {
		*c = Count(n)
		return nil
	}
	// Integral floats such as 12.0 are accepted.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", data, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExactFloatInt {
		return fmt.Errorf("invalid count %s: not an integer", data)
	}
	*c = Count(f)
	return nil
}

// maxExactFloatInt is the largest integer a float64 holds exactly.
const maxExactFloatInt = 1 << 53

// Time accepts RFC3339 and other date strings as well as epoch numbers in
// seconds, milliseconds or microseconds.
type Time struct {
	time.Time
}

// Epoch magnitudes above which a number is read as ms or µs.
const (
	epochMillisThreshold = 1e11
	epochMicrosThreshold = 1e14
)

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] != '"' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		t.Time = fromEpoch(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = fromEpoch(n)
		return nil
	}
	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func fromEpoch(n float64) time.Time {
	switch {
	case n >= epochMicrosThreshold:
		return time.UnixMicro(int64(n)).UTC()
	case n >= epochMillisThreshold:
		return time.UnixMilli(int64(n)).UTC()
	default:
		return time.Unix(int64(n), 0).UTC()
	}
}
