package cache

import (
	"unidata-cache/internal/interfaces"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct {
	prefix string
}

// NewKeyBuilder creates a new KeyBuilder instance.
// With an empty prefix the store key is the country exactly as requested.
func NewKeyBuilder(prefix string) interfaces.KeyBuilder {
	return &KeyBuilderImpl{prefix: prefix}
}

// Build returns the store key for a country. The country is not normalized.
func (kb *KeyBuilderImpl) Build(country string) string {
	return kb.prefix + country
}
