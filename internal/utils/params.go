package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamsToInts parses a comma-separated id list ("4,2,5") from a query
// parameter. A non-integer token is a caller error and surfaces as-is.
func ParamsToInts(qs string) ([]int64, error) {
	if strings.TrimSpace(qs) == "" {
		return nil, nil
	}

	parts := strings.Split(qs, ",")
	out := make([]int64, 0, len(parts))

	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)

		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}

		out = append(out, id)
	}

	return out, nil
}
