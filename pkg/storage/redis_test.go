package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisProvider(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r := &RedisProvider{addr: addr}
	require.NoError(t, r.Validate())
	require.NoError(t, r.Init(context.Background()))
	defer r.Close()

	// unique namespace so previous runs don't show up in listings
	testDatabase(t, r, fmt.Sprintf("test%d.0.", time.Now().UnixNano()))
}

func TestRedisValidate(t *testing.T) {
	assert.Error(t, (&RedisProvider{}).Validate())
	assert.Error(t, (&RedisProvider{addr: "127.0.0.1:6379", db: -1}).Validate())
	assert.NoError(t, (&RedisProvider{addr: "127.0.0.1:6379"}).Validate())
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"io.sunnyportal.0.", "io.sunnyportal.0."},
		{"io.plant*1.", `io.plant\*1.`},
		{"io.a?b[c]d.", `io.a\?b\[c\]d.`},
		{`io.back\slash.`, `io.back\\slash.`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeGlob(tt.in))
		})
	}
}
