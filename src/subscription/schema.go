package subscription

import (
	"fmt"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Data-Type Schema
//
// One static table drives validation and key construction for every feed
// type. Adding a feed type means adding a row here, nothing else.
// -----------------------------------------------------------------------------

// FeedType tags the category of data a subscription targets.
type FeedType string

const (
	FeedKline    FeedType = "kline"
	FeedTick     FeedType = "tick"
	FeedOrder    FeedType = "order"
	FeedPosition FeedType = "position"
	FeedAccount  FeedType = "account"
)

// -----------------------------------------------------------------------------

// Key uniquely identifies one live feed within one terminal. Identical
// discriminators always produce the identical key, which is what lets
// connections share a subscription record. Lookup is exact-match only.
type Key string

// -----------------------------------------------------------------------------

type feedSchema struct {
	required []string
	// keyParts lists the param names that enter the key, in order.
	// Optional trailing parts are suffixed with '?'.
	keyParts []string
}

var feedSchemas = map[FeedType]feedSchema{
	FeedKline:    {required: []string{"symbol", "interval"}, keyParts: []string{"symbol", "interval"}},
	FeedTick:     {required: []string{"symbol"}, keyParts: []string{"symbol"}},
	FeedOrder:    {required: []string{"account_id"}, keyParts: []string{"account_id"}},
	FeedPosition: {required: []string{"account_id"}, keyParts: []string{"account_id", "symbol?"}},
	FeedAccount:  {required: []string{"account_id"}, keyParts: []string{"account_id"}},
}

// MT5 interval vocabulary
var validIntervals = map[string]bool{
	"M1": true, "M2": true, "M3": true, "M4": true, "M5": true, "M6": true,
	"M10": true, "M12": true, "M15": true, "M20": true, "M30": true,
	"H1": true, "H2": true, "H3": true, "H4": true, "H6": true, "H8": true, "H12": true,
	"D1": true, "W1": true, "MN1": true,
}

// -----------------------------------------------------------------------------

// RequiredParams returns the required parameter names of a feed type, or
// nil for an unknown feed type.
func RequiredParams(feed FeedType) []string {
	schema, ok := feedSchemas[feed]
	if !ok {
		return nil
	}
	return schema.required
}

// -----------------------------------------------------------------------------

// Validate checks that every required parameter is present and non-empty
// and that parameter values are usable. Unknown feed types always fail.
func Validate(feed FeedType, params Params) error {
	schema, ok := feedSchemas[feed]
	if !ok {
		return fmt.Errorf("unsupported data type: %s", feed)
	}

	for _, name := range schema.required {
		if paramString(params, name) == "" {
			return fmt.Errorf("missing required parameter %s", name)
		}
	}

	if feed == FeedKline {
		if interval := paramString(params, "interval"); !validIntervals[interval] {
			return fmt.Errorf("invalid interval: %s", interval)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// BuildKey constructs the composite subscription key for a validated
// request. The terminal identifier always participates so feeds of
// different terminals never alias each other.
func BuildKey(feed FeedType, terminalID int64, params Params) (Key, error) {
	schema, ok := feedSchemas[feed]
	if !ok {
		return "", fmt.Errorf("unsupported data type: %s", feed)
	}

	parts := []string{string(feed), strconv.FormatInt(terminalID, 10)}
	for _, name := range schema.keyParts {
		optional := strings.HasSuffix(name, "?")
		name = strings.TrimSuffix(name, "?")
		val := paramString(params, name)
		if val == "" {
			if optional {
				continue
			}
			return "", fmt.Errorf("missing required parameter %s", name)
		}
		parts = append(parts, val)
	}

	return Key(strings.Join(parts, "|")), nil
}

// -----------------------------------------------------------------------------

// TerminalID extracts the terminal identifier from params, falling back
// to the supplied default for single-terminal deployments.
func TerminalID(params Params, fallback int64) int64 {
	if id, ok := paramInt64(params, "terminal_id"); ok {
		return id
	}
	return fallback
}
