package httpserver

const (
	greeting = "hello worlds"

	detailCacheDecode    = "Error decoding cached data"
	detailUpstreamDecode = "Error decoding data from FishWatch API"
	detailInternal       = "Internal Server Error"

	headerCacheStatus = "X-Cache-Status"
	headerCacheLevel  = "X-Cache-Level"
)

// ErrorResponse is the body of every failed lookup
type ErrorResponse struct {
	Detail string `json:"detail"`
}
