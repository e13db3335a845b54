package utils

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ParamError reports a query parameter that failed to parse or is out of range.
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// ParseQueryList handles both repeated and comma-separated query params.
// Example:
//
//	?expand=unit,user   → ["unit","user"]
//	?expand=unit&expand=user  → ["unit","user"]
func ParseQueryList(q url.Values, key string) []string {
	values := q[key]

	if len(values) == 0 {
		return nil
	}

	var cleaned []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
	}
	return cleaned
}

// QueryInt reads an integer param within [min, max]; def is used when it is absent.
func QueryInt(q url.Values, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Param: key, Message: "must be an integer"}
	}
	if v < min || v > max {
		return 0, &ParamError{Param: key, Message: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return v, nil
}

// QueryInt64 reads a required positive id param.
func QueryInt64(q url.Values, key string) (int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, &ParamError{Param: key, Message: "is required"}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, &ParamError{Param: key, Message: "must be a positive integer"}
	}
	return v, nil
}

// QueryFloat reads a float param within [min, max]. A nil def makes the param required.
func QueryFloat(q url.Values, key string, def *float64, min, max float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		if def == nil {
			return 0, &ParamError{Param: key, Message: "is required"}
		}
		return *def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, &ParamError{Param: key, Message: "must be a number"}
	}
	if v < min || v > max {
		return 0, &ParamError{Param: key, Message: fmt.Sprintf("must be between %g and %g", min, max)}
	}
	return v, nil
}

// Pagination reads skip (>= 0, default 0) and limit (1..1000, default 100).
func Pagination(q url.Values) (skip, limit int, err error) {
	skip, err = QueryInt(q, "skip", 0, 0, int(^uint32(0)>>1))
	if err != nil {
		return 0, 0, err
	}
	limit, err = QueryInt(q, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
