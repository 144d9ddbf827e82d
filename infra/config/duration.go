package config

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Duration is a timeout in configuration input. It accepts a Go duration
// string ("30s", "1m30s") or a plain number of milliseconds (30000, "30000")
// and is written back as a duration string.
type Duration time.Duration

// Duration returns d as a time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON writes d as a duration string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a duration string or a number of milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var value any
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		value = s
	} else {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return errors.Wrapf(err, "timeout %s is neither a duration nor milliseconds", data)
		}
		value = f
	}

	parsed, err := ParseDuration(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration converts a duration string, a numeric string or a number
// into a Duration. Numbers are milliseconds.
func ParseDuration(value any) (Duration, error) {
	switch v := value.(type) {
	case Duration:
		return v, nil
	case time.Duration:
		return Duration(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return millis(ms), nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, errors.Newf("timeout %q is neither a duration nor milliseconds", v)
		}
		return Duration(parsed), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return millis(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return millis(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return millis(rv.Float()), nil
	}
	return 0, errors.Newf("timeout of type %T is not supported", value)
}

func millis(ms float64) Duration {
	return Duration(ms * float64(time.Millisecond))
}

// durationHook lets viper decode Duration fields with the same rules as JSON
func durationHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(Duration(0))
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		return ParseDuration(data)
	}
}
