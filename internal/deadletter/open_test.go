package deadletter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := Open(ctx, "memory://")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)
	require.NoError(t, closeFn())

	store, closeFn, err = Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, closeFn())

	_, _, err = Open(ctx, "ftp://example.com")
	require.ErrorContains(t, err, `unsupported dead letter dsn scheme "ftp"`)

	_, _, err = Open(ctx, "/tmp/letters.db")
	require.Error(t, err)
}

func TestMongoDatabase(t *testing.T) {
	require.Equal(t, "letters", mongoDatabase("h1:27017,h2:27017/letters?replicaSet=rs0"))
	require.Equal(t, "", mongoDatabase("localhost:27017"))
	require.Equal(t, "", mongoDatabase("localhost:27017/?tls=true"))
}
