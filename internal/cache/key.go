package cache

import "net/url"

// Key builds the deterministic cache key for a logical request. Parameters
// are canonicalized by sorting on name (url.Values.Encode emits keys in
// sorted order), so semantically identical requests collide to the same key
// regardless of argument order. Keys stay human-readable on purpose:
// Invalidate matches on key substrings.
func Key(provider, endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return provider + "|" + endpoint
	}
	v := make(url.Values, len(params))
	for k, val := range params {
		v.Set(k, val)
	}
	return provider + "|" + endpoint + "?" + v.Encode()
}
