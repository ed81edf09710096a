package service

import "errors"

var (
	// ErrCacheDecode means a stored value exists but is not a JSON document
	ErrCacheDecode = errors.New("cached data is not valid JSON")
	// ErrUpstreamDecode means the upstream body is not a JSON document; nothing was cached
	ErrUpstreamDecode = errors.New("upstream data is not valid JSON")
)
