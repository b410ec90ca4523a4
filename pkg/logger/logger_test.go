package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

func TestGet(t *testing.T) {
	t.Run("falls back to process logger", func(t *testing.T) {
		assert.Equal(t, logger.Log, logger.Get(context.Background()))
	})

	t.Run("returns logger stored in context", func(t *testing.T) {
		custom := zap.NewExample()
		ctx := logger.WithLogger(context.Background(), custom)
		assert.Equal(t, custom, logger.Get(ctx))
	})
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))
	ctx = logger.WithFields(ctx, zap.String("request_id", "abc"))

	logger.Info(ctx, "hello")
	logger.Debug(ctx, "dropped")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "hello", entries[0].Message)
		assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
	}
}

func TestInit(t *testing.T) {
	prev := logger.Log
	defer func() { logger.Log = prev }()

	assert.NotPanics(t, func() { logger.Init(logger.ProductionEnvironment) })
	assert.NotNil(t, logger.Log)
}
