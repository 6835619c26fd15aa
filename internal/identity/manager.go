// Package identity keeps the profile's user directory and its single session.
//
// This is a local convenience login, not an authentication system: the
// directory and session live in the same unprotected profile database the
// entries do, and passwords are reduced with PasswordHash, a non-cryptographic
// rolling hash. Anyone with access to the profile can read or forge both.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/logging"
	"github.com/pbaille/checkin/internal/store"
)

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	sessionKey   = "checkin.session"
	directoryKey = "checkin.users"
)

// Manager registers users, checks passwords and tracks the current session.
type Manager struct {
	kv  store.KV
	log logging.Logger
	now func() time.Time
}

// NewManager returns a Manager over kv. A nil now uses time.Now.
func NewManager(kv store.KV, log logging.Logger, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{kv: kv, log: log.With("component", "identity"), now: now}
}

// NormalizeUsername trims and lowercases a handle. Uniqueness is enforced on
// the normalized form.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// PasswordHash folds password into a 32-bit value with h = h*31 + c.
//
// It is deterministic across runs so stored accounts keep working, and it is
// NOT secure: collisions are trivial to find and nothing is salted. It only
// deters casual switching between local users on a shared profile.
func PasswordHash(password string) int32 {
	var h int32
	for _, r := range password {
		h = h*31 + int32(r)
	}
	return h
}

// Register adds a user to the directory and starts a session for it.
func (m *Manager) Register(ctx context.Context, username, password, name string) (domain.Session, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return domain.Session{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if password == "" {
		return domain.Session{}, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	dir, err := m.readDirectory(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("register %s: %w", username, err)
	}
	if _, exists := dir[username]; exists {
		return domain.Session{}, fmt.Errorf("register %s: %w", username, ErrDuplicateUsername)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate user id: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = username
	}

	user := domain.User{
		ID:           "user_" + id.String(),
		Username:     username,
		Name:         name,
		PasswordHash: PasswordHash(password),
		Created:      m.now().UTC(),
	}
	dir[username] = user

	if err := m.saveDirectory(ctx, dir); err != nil {
		return domain.Session{}, err
	}

	m.log.Info(ctx, "registered user", "username", username, "user", user.ID)
	return m.startSession(ctx, user)
}

// Login checks password against the stored hash and starts a session.
func (m *Manager) Login(ctx context.Context, username, password string) (domain.Session, error) {
	username = NormalizeUsername(username)

	dir, err := m.readDirectory(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login %s: %w", username, err)
	}
	user, ok := dir[username]
	if !ok {
		return domain.Session{}, fmt.Errorf("login %s: %w", username, ErrUserNotFound)
	}
	if user.PasswordHash != PasswordHash(password) {
		return domain.Session{}, fmt.Errorf("login %s: %w", username, ErrInvalidCredentials)
	}

	return m.startSession(ctx, user)
}

// Logout ends the current session. The directory and entries stay.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.kv.Remove(ctx, sessionKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// CurrentSession returns the active session. A missing or unreadable record
// means nobody is logged in.
func (m *Manager) CurrentSession(ctx context.Context) (domain.Session, bool) {
	raw, err := m.kv.Get(ctx, sessionKey)
	if err != nil {
		m.log.Warn(ctx, "reading session failed, continuing anonymous", "err", err)
		return domain.Session{}, false
	}
	if raw == nil {
		return domain.Session{}, false
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil || s.UserID == "" {
		m.log.Warn(ctx, "discarding unreadable session record", "err", err)
		return domain.Session{}, false
	}
	return s, true
}

// Users lists the directory ordered by username.
func (m *Manager) Users(ctx context.Context) []domain.User {
	dir := m.directory(ctx)
	users := make([]domain.User, 0, len(dir))
	for _, u := range dir {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

func (m *Manager) startSession(ctx context.Context, user domain.User) (domain.Session, error) {
	s := domain.Session{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Started:  m.now().UTC(),
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, sessionKey, raw); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// directory loads the username index. Unreadable or unavailable data counts
// as empty.
func (m *Manager) directory(ctx context.Context) map[string]domain.User {
	dir, err := m.readDirectory(ctx)
	if err != nil {
		m.log.Warn(ctx, "reading user directory failed", "err", err)
		return make(map[string]domain.User)
	}
	return dir
}

// readDirectory treats only an absent or unparsable index as empty; a failed
// read is returned.
func (m *Manager) readDirectory(ctx context.Context) (map[string]domain.User, error) {
	dir := make(map[string]domain.User)

	raw, err := m.kv.Get(ctx, directoryKey)
	if err != nil {
		return nil, store.Unavailable("read user directory", err)
	}
	if raw == nil {
		return dir, nil
	}
	if err := json.Unmarshal(raw, &dir); err != nil {
		m.log.Warn(ctx, "discarding unreadable user directory", "err", err)
		return make(map[string]domain.User), nil
	}
	return dir, nil
}

func (m *Manager) saveDirectory(ctx context.Context, dir map[string]domain.User) error {
	raw, err := json.Marshal(dir)
	if err != nil {
		return fmt.Errorf("encode user directory: %w", err)
	}
	if err := m.kv.Set(ctx, directoryKey, raw); err != nil {
		return fmt.Errorf("save user directory: %w", err)
	}
	return nil
}
