package subscription

import (
	"fmt"
	"strconv"
)

// -----------------------------------------------------------------------------
// Param coercion
//
// Clients send params as generic JSON, so numeric values (account ids,
// terminal ids) arrive as float64 while symbols arrive as strings. These
// helpers flatten both into the string form used by subscription keys.
// -----------------------------------------------------------------------------

// Params is the feed-specific parameter map of one command.
type Params map[string]interface{}

// -----------------------------------------------------------------------------

func paramString(p Params, key string) string {
	val, ok := p[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; ids are whole numbers
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// -----------------------------------------------------------------------------

func paramInt64(p Params, key string) (int64, bool) {
	val, ok := p[key]
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------

// Strings returns a flat string copy of the params, used when echoing
// them back in acks and subscription listings.
func (p Params) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for k := range p {
		out[k] = paramString(p, k)
	}
	return out
}
