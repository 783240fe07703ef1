package main

import (
	"encoding/json"
	"strconv"
	"time"
)

// ParseWhere decodes a JSON object given on the command line. An empty string means no
// constraints.
func ParseWhere(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	where := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &where); err != nil {
		return nil, err
	}

	return where, nil
}

func HumanDuration(d time.Duration) string {
	str := ""
	if h := d / time.Hour; h >= 1 {
		str += strconv.FormatInt(int64(h), 10) + "h"
		d = d % time.Hour
	}

	if m := d / time.Minute; m >= 1 {
		str += strconv.FormatInt(int64(m), 10) + "m"
		d = d % time.Minute
	}

	if s := d / time.Second; s >= 1 {
		str += strconv.FormatInt(int64(s), 10) + "s"
		d = d % time.Second
	}

	if str == "" {
		str = strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}

	return str
}
