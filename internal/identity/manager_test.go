package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/logging"
	"github.com/pbaille/checkin/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemory(0)
	return NewManager(kv, logging.Nop(), func() time.Time { return fixedNow }), kv
}

func TestPasswordHash_IsDeterministic(t *testing.T) {
	assert.Equal(t, PasswordHash("pass1"), PasswordHash("pass1"))
	assert.NotEqual(t, PasswordHash("pass1"), PasswordHash("pass2"))
	assert.Equal(t, int32(0), PasswordHash(""))
	// "ab" = 97*31 + 98
	assert.Equal(t, int32(3105), PasswordHash("ab"))
}

func TestPasswordHash_WrapsWithoutPanicking(t *testing.T) {
	long := "the quick brown fox jumps over the lazy dog, repeatedly and at length"
	require.NotPanics(t, func() { PasswordHash(long) })
	assert.Equal(t, PasswordHash(long), PasswordHash(long))
}

func TestRegisterThenLogin(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	registered, err := m.Register(ctx, "alice", "pass1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", registered.Username)
	assert.Equal(t, "Alice", registered.Name)
	assert.Contains(t, registered.UserID, "user_")

	_, err = m.Login(ctx, "alice", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := m.Login(ctx, "alice", "pass1")
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, session.UserID)

	current, ok := m.CurrentSession(ctx)
	require.True(t, ok)
	assert.Equal(t, registered.UserID, current.UserID)
}

func TestRegister_StartsSession(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Register(ctx, "bob", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", s.Name, "display name defaults to the username")
	assert.Equal(t, fixedNow, s.Started)

	current, ok := m.CurrentSession(ctx)
	require.True(t, ok)
	assert.Equal(t, s, current)
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "Alice", "pass1", "")
	require.NoError(t, err)

	_, err = m.Register(ctx, "  ALICE ", "other", "")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	assert.Len(t, m.Users(ctx), 1)
}

func TestRegister_Validation(t *testing.T) {
	m, kv := newManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "   ", "pass", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = m.Register(ctx, "carol", "", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 0, kv.Len())
}

func TestLogin_UnknownUser(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Login(context.Background(), "nobody", "x")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_NormalizesUsername(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "dave", "pw", "")
	require.NoError(t, err)

	_, err = m.Login(ctx, " DAVE", "pw")
	require.NoError(t, err)
}

func TestLogout_ClearsSessionOnly(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "erin", "pw", "")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	_, ok := m.CurrentSession(ctx)
	assert.False(t, ok)

	_, err = m.Login(ctx, "erin", "pw")
	require.NoError(t, err, "directory must survive logout")
}

func TestCurrentSession_MalformedRecordIsAnonymous(t *testing.T) {
	m, kv := newManager(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, sessionKey, []byte("{not json")))
	_, ok := m.CurrentSession(ctx)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, sessionKey, []byte(`{"username":"ghost"}`)))
	_, ok = m.CurrentSession(ctx)
	assert.False(t, ok, "a session without a user id is not a session")
}

func TestMalformedDirectoryIsEmpty(t *testing.T) {
	m, kv := newManager(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, directoryKey, []byte("[1,2,3]")))

	assert.Empty(t, m.Users(ctx))
	_, err := m.Login(ctx, "alice", "pass1")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = m.Register(ctx, "alice", "pass1", "")
	require.NoError(t, err)
}

func TestRegister_StoreFailureLeavesNoSession(t *testing.T) {
	m, kv := newManager(t)
	ctx := context.Background()
	kv.FailWrites = store.ErrStoreUnavailable

	_, err := m.Register(ctx, "frank", "pw", "")
	require.True(t, errors.Is(err, store.ErrStoreUnavailable))

	_, ok := m.CurrentSession(ctx)
	assert.False(t, ok)
}

func TestUsers_SortedByUsername(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, name := range []string{"zoe", "adam", "mia"} {
		_, err := m.Register(ctx, name, "pw", "")
		require.NoError(t, err)
	}

	users := m.Users(ctx)
	require.Len(t, users, 3)
	assert.Equal(t, "adam", users[0].Username)
	assert.Equal(t, "mia", users[1].Username)
	assert.Equal(t, "zoe", users[2].Username)
}

// flakyKV fails the next failGets reads and otherwise behaves like its store.
type flakyKV struct {
	*store.MemoryStore
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("database is locked")
	}
	return f.MemoryStore.Get(ctx, key)
}

func TestRegister_FailedDirectoryReadKeepsUsers(t *testing.T) {
	kv := &flakyKV{MemoryStore: store.NewMemory(0)}
	m := NewManager(kv, logging.Nop(), func() time.Time { return fixedNow })
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		_, err := m.Register(ctx, name, "pw", "")
		require.NoError(t, err)
	}

	kv.failGets = 1
	_, err := m.Register(ctx, "carol", "pw", "")
	require.ErrorIs(t, err, store.ErrStoreUnavailable)

	kv.failGets = 1
	_, err = m.Login(ctx, "alice", "pw")
	require.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, ErrUserNotFound))

	users := m.Users(ctx)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}
