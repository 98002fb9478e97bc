package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedisPings(t *testing.T) {
	server := miniredis.RunT(t)

	conn, err := ConnectRedis(server.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, server.Set("ping-key", "1"))
	value, err := conn.Client.Get(context.Background(), "ping-key").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestConnectRedisRequiresAddr(t *testing.T) {
	_, err := ConnectRedis("", "", 0)
	assert.Error(t, err)
}

func TestNilRedisCloseIsSafe(t *testing.T) {
	var conn *Redis
	assert.NoError(t, conn.Close())
}
