package interfaces

// KeyBuilder maps a lookup key onto the store key
type KeyBuilder interface {
	Build(country string) string
}
