package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	fileStore, err := NewFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")

	stores := map[string]Store{
		"memory": NewMemory(),
		"file":   fileStore,
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Ping(ctx))

			doc, err := s.Load(ctx, Users)
			require.NoError(t, err)
			require.Nil(t, doc, "missing collection loads as nil")

			require.NoError(t, s.Save(ctx, Users, []byte(`[{"id":"a"}]`)))
			doc, err = s.Load(ctx, Users)
			require.NoError(t, err)
			require.JSONEq(t, `[{"id":"a"}]`, string(doc))

			// whole-document overwrite
			require.NoError(t, s.Save(ctx, Users, []byte(`[]`)))
			doc, err = s.Load(ctx, Users)
			require.NoError(t, err)
			require.JSONEq(t, `[]`, string(doc))

			doc, err = s.Load(ctx, Events)
			require.NoError(t, err)
			require.Nil(t, doc, "collections are independent")
		})
	}
}

func TestMemoryCopiesDocuments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte(`[1]`)
	require.NoError(t, m.Save(ctx, Events, in))
	in[1] = '2'

	out, err := m.Load(ctx, Events)
	require.NoError(t, err)
	require.Equal(t, `[1]`, string(out))
}

func TestFileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, f.Save(ctx, Attendance, []byte(`[]`)))
	data, err := os.ReadFile(filepath.Join(dir, "attendance.json"))
	require.NoError(t, err)
	require.Equal(t, `[]`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are renamed away")
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "cassandra"})
	require.Error(t, err)

	s, err := Open(context.Background(), Options{Backend: "file", DataDir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &File{}, s)
}
