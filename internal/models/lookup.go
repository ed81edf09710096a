package models

// UpstreamResponse is the raw answer of the university directory API.
// The status code is recorded but never used to reject the body.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// LookupResult is the outcome of a cache-aside lookup
type LookupResult struct {
	// Data is the decoded JSON document, passed through without a schema
	Data   interface{}
	Status CacheStatus
	Level  CacheLevel
}
