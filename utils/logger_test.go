package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLogger(t *testing.T) {
	orig := GetLogger(context.Background())
	defer SetLogger(orig)

	replacement := zap.NewNop()
	SetLogger(replacement)
	assert.Same(t, replacement, GetLogger(context.Background()))
}
