// Package records is the typed view over the collection store. A missing or
// corrupt collection reads as empty. The plain readers also swallow store
// failures; read-modify-write cycles use the Load variants, which report them,
// so that an outage never turns into a save over an empty collection.
package records

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"hackattend/internal/model"
	"hackattend/internal/store"
)

// Repository loads and saves whole collections.
type Repository struct {
	store store.Store
	log   *zap.SugaredLogger
	mu    sync.Mutex
}

// NewRepository creates a repo.
func NewRepository(s store.Store, log *zap.SugaredLogger) *Repository {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Repository{store: s, log: log}
}

// Update runs fn while holding the repository write lock. Every
// load-check-save cycle goes through Update so that checks such as duplicate
// detection and the following write are atomic within this process. Writers in
// other processes are not coordinated: the last save wins.
func (r *Repository) Update(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *Repository) Users(ctx context.Context) []model.User {
	return load[model.User](ctx, r, store.Users)
}

func (r *Repository) Events(ctx context.Context) []model.Event {
	return load[model.Event](ctx, r, store.Events)
}

func (r *Repository) Attendance(ctx context.Context) []model.AttendanceRecord {
	return load[model.AttendanceRecord](ctx, r, store.Attendance)
}

// LoadUsers is Users for write paths: store failures are returned.
func (r *Repository) LoadUsers(ctx context.Context) ([]model.User, error) {
	return loadStrict[model.User](ctx, r, store.Users)
}

func (r *Repository) LoadEvents(ctx context.Context) ([]model.Event, error) {
	return loadStrict[model.Event](ctx, r, store.Events)
}

func (r *Repository) LoadAttendance(ctx context.Context) ([]model.AttendanceRecord, error) {
	return loadStrict[model.AttendanceRecord](ctx, r, store.Attendance)
}

func (r *Repository) SaveUsers(ctx context.Context, users []model.User) error {
	return save(ctx, r, store.Users, users)
}

func (r *Repository) SaveEvents(ctx context.Context, events []model.Event) error {
	return save(ctx, r, store.Events, events)
}

func (r *Repository) SaveAttendance(ctx context.Context, recs []model.AttendanceRecord) error {
	return save(ctx, r, store.Attendance, recs)
}

// Ping checks the underlying store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func load[T any](ctx context.Context, r *Repository, name string) []T {
	out, err := loadStrict[T](ctx, r, name)
	if err != nil {
		return []T{}
	}
	return out
}

func loadStrict[T any](ctx context.Context, r *Repository, name string) ([]T, error) {
	doc, err := r.store.Load(ctx, name)
	if err != nil {
		r.log.Warnw("load collection failed", "collection", name, "err", err)
		return nil, model.Storage("Error loading data", err)
	}
	if len(doc) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(doc, &out); err != nil {
		r.log.Warnw("decode collection failed, treating as empty", "collection", name, "err", err)
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, r *Repository, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	doc, err := json.Marshal(items)
	if err != nil {
		return model.Storage("Error saving data", err)
	}
	if err := r.store.Save(ctx, name, doc); err != nil {
		r.log.Errorw("save collection failed", "collection", name, "err", err)
		return model.Storage("Error saving data", err)
	}
	return nil
}
