package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "checkin.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// implementations returns every KV under test, each freshly created.
func implementations(t *testing.T) map[string]KV {
	return map[string]KV{
		"sqlite": newSQLite(t),
		"memory": NewMemory(0),
	}
}

func TestKV_SetThenGet(t *testing.T) {
	for name, kv := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k1", []byte(`{"a":1}`)))

			v, err := kv.Get(ctx, "k1")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"a":1}`), v)
		})
	}
}

func TestKV_GetMissing_ReturnsNilNil(t *testing.T) {
	for name, kv := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			v, err := kv.Get(context.Background(), "absent")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestKV_SetOverwrites(t *testing.T) {
	for name, kv := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k", []byte("old")))
			require.NoError(t, kv.Set(ctx, "k", []byte("new")))

			v, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), v)
		})
	}
}

func TestKV_Remove_IsIdempotent(t *testing.T) {
	for name, kv := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, "k", []byte("v")))
			require.NoError(t, kv.Remove(ctx, "k"))
			require.NoError(t, kv.Remove(ctx, "k"))

			v, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestSQLite_QuotaExceeded(t *testing.T) {
	s := newSQLite(t, WithQuota(16))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("12345678")))

	err := s.Set(ctx, "b", []byte("12345678"))
	require.ErrorIs(t, err, ErrStoreQuotaExceeded)

	v, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, v, "rejected write must not be visible")

	// Replacing an existing key only counts the new value.
	require.NoError(t, s.Set(ctx, "a", []byte("87654321")))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkin.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("kept")))
	require.NoError(t, s.Close())

	s, err = New(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), v)
}

func TestSQLite_ClosedDB_IsUnavailable(t *testing.T) {
	s := newSQLite(t)
	require.NoError(t, s.Close())

	err := s.Set(context.Background(), "k", []byte("v"))
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemory_QuotaAndFailWrites(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("12345")))
	require.ErrorIs(t, m.Set(ctx, "x", []byte("12345")), ErrStoreQuotaExceeded)
	assert.Equal(t, 1, m.Len())

	boom := errors.New("boom")
	m.FailWrites = boom
	require.ErrorIs(t, m.Set(ctx, "k", []byte("1")), boom)
	require.ErrorIs(t, m.Remove(ctx, "k"), boom)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("abc")))

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'z'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
