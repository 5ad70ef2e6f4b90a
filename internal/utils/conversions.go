package utils

import (
	"strconv"
	"strings"
)

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s := ToString(v); s != "" {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ToString renders a decoded JSON claim value as a string. Lists are joined
// with single spaces, numbers are printed without an exponent.
func ToString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case []any:
		return strings.Join(ToStringSlice(value), " ")
	case []string:
		return strings.Join(value, " ")
	}
	return ""
}
