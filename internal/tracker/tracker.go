// Package tracker is the application core behind the CLI and the local API.
//
// A Tracker holds the current session and that user's entries. Every change
// is written to the store first; the in-memory list is replaced only once the
// write succeeded, so a failed save leaves the Tracker exactly as it was.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/entries"
	"github.com/pbaille/checkin/internal/identity"
	"github.com/pbaille/checkin/internal/insights"
	"github.com/pbaille/checkin/internal/logging"
)

// ErrNoSession is returned by entry operations when nobody is logged in.
var ErrNoSession = errors.New("no active session")

// Tracker ties identity, entry persistence and derived views together.
// It is not safe for concurrent use.
type Tracker struct {
	identity *identity.Manager
	repo     *entries.Repository
	log      logging.Logger
	now      func() time.Time

	session *domain.Session
	entries []domain.Entry
}

// New restores the persisted session, if any, and loads its entries.
func New(ctx context.Context, idm *identity.Manager, repo *entries.Repository, log logging.Logger, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		identity: idm,
		repo:     repo,
		log:      log.With("component", "tracker"),
		now:      now,
		entries:  []domain.Entry{},
	}
	if s, ok := idm.CurrentSession(ctx); ok {
		t.activate(ctx, s)
	}
	return t
}

// Now is the tracker's clock, in the configured location.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Session returns the active session.
func (t *Tracker) Session() (domain.Session, bool) {
	if t.session == nil {
		return domain.Session{}, false
	}
	return *t.session, true
}

// Register creates a user and switches to it.
func (t *Tracker) Register(ctx context.Context, username, password, name string) (domain.Session, error) {
	s, err := t.identity.Register(ctx, username, password, name)
	if err != nil {
		return domain.Session{}, err
	}
	t.activate(ctx, s)
	return s, nil
}

// Login switches to an existing user.
func (t *Tracker) Login(ctx context.Context, username, password string) (domain.Session, error) {
	s, err := t.identity.Login(ctx, username, password)
	if err != nil {
		return domain.Session{}, err
	}
	t.activate(ctx, s)
	return s, nil
}

// Logout ends the session. Stored entries are kept.
func (t *Tracker) Logout(ctx context.Context) error {
	if err := t.identity.Logout(ctx); err != nil {
		return err
	}
	t.session = nil
	t.entries = []domain.Entry{}
	return nil
}

// Users lists everyone registered in the profile.
func (t *Tracker) Users(ctx context.Context) []domain.User {
	return t.identity.Users(ctx)
}

// Refresh reloads the current user's entries from the store.
func (t *Tracker) Refresh(ctx context.Context) error {
	s, err := t.requireSession()
	if err != nil {
		return err
	}
	t.entries = t.repo.Load(ctx, s.UserID)
	return nil
}

// Sync rereads the session and its entries from the store, picking up
// changes made by another process sharing the profile.
func (t *Tracker) Sync(ctx context.Context) {
	s, ok := t.identity.CurrentSession(ctx)
	if !ok {
		t.session = nil
		t.entries = []domain.Entry{}
		return
	}
	t.activate(ctx, s)
}

func (t *Tracker) activate(ctx context.Context, s domain.Session) {
	t.session = &s
	t.entries = t.repo.Load(ctx, s.UserID)
	t.log.Debug(ctx, "session active", "user", s.UserID, "entries", len(t.entries))
}

func (t *Tracker) requireSession() (domain.Session, error) {
	if t.session == nil {
		return domain.Session{}, ErrNoSession
	}
	return *t.session, nil
}

// Entries returns the current user's entries in insertion order.
func (t *Tracker) Entries() []domain.Entry {
	return slices.Clone(t.entries)
}

// View returns the entries inside the given time window.
func (t *Tracker) View(view insights.View) []domain.Entry {
	return insights.FilterByView(t.entries, view, t.now())
}

// Insights summarizes the entries inside view; nil when there are none.
func (t *Tracker) Insights(view insights.View) *insights.Insights {
	return insights.ComputeInsights(t.View(view))
}

// Chart returns the plotted series for view, in chronological order.
func (t *Tracker) Chart(view insights.View) insights.Chart {
	return insights.SeriesForChart(insights.SortChronological(t.View(view)))
}

// Categories breaks the entries inside view down by task type.
func (t *Tracker) Categories(view insights.View) []insights.CategoryStat {
	return insights.CategoryBreakdown(t.View(view))
}

// Delete removes an entry by id. It reports whether the id was present; an
// unknown id still rewrites the unchanged list.
func (t *Tracker) Delete(ctx context.Context, entryID string) (bool, error) {
	s, err := t.requireSession()
	if err != nil {
		return false, err
	}

	found := slices.ContainsFunc(t.entries, func(e domain.Entry) bool { return e.ID == entryID })

	kept, err := t.repo.Remove(ctx, s.UserID, entryID)
	if err != nil {
		t.log.Error(ctx, "delete not saved", "entry", entryID, "err", err)
		return false, fmt.Errorf("delete entry: %w", err)
	}
	t.entries = kept
	return found, nil
}

// record validates e, persists it and only then reflects it in memory.
func (t *Tracker) record(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	s, err := t.requireSession()
	if err != nil {
		return domain.Entry{}, err
	}
	if err := e.Validate(); err != nil {
		return domain.Entry{}, err
	}

	saved, err := t.repo.Append(ctx, s.UserID, e)
	if err != nil {
		t.log.Error(ctx, "entry not saved", "kind", e.Kind, "err", err)
		return domain.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	t.entries = saved
	t.log.Debug(ctx, "entry saved", "entry", e.ID, "kind", e.Kind)
	return e, nil
}
