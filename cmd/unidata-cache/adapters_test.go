package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisLogger_Printf(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := NewRedisLogger(zap.New(core))

	adapter.Printf(context.Background(), "redis: discarding bad PubSub connection: %s", "EOF")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "redis: discarding bad PubSub connection: EOF", entries[0].Message)
		assert.Equal(t, zap.WarnLevel, entries[0].Level)
		assert.Equal(t, "redis", entries[0].LoggerName)
	}
}
