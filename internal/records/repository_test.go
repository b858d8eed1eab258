package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hackattend/internal/model"
	"hackattend/internal/store"
)

type failingStore struct{ *store.Memory }

func (f *failingStore) Save(context.Context, string, []byte) error { return errors.New("quota exceeded") }

// unreachableStore fails every Load once down is set.
type unreachableStore struct {
	*store.Memory
	down bool
}

func (u *unreachableStore) Load(ctx context.Context, name string) ([]byte, error) {
	if u.down {
		return nil, errors.New("connection reset")
	}
	return u.Memory.Load(ctx, name)
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := NewRepository(mem, nil)

	require.Empty(t, repo.Users(ctx))
	require.NotNil(t, repo.Users(ctx))

	require.NoError(t, mem.Save(ctx, store.Events, []byte(`{not json`)))
	require.Empty(t, repo.Events(ctx))

	require.NoError(t, mem.Save(ctx, store.Attendance, []byte(`null`)))
	require.NotNil(t, repo.Attendance(ctx))
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	now := time.Now().UTC().Truncate(time.Millisecond)
	users := []model.User{{ID: "u1", Email: "a@x.com", Role: model.RoleStudent, Status: model.StatusPending, CreatedAt: now}}
	require.NoError(t, repo.SaveUsers(ctx, users))

	got := repo.Users(ctx)
	require.Len(t, got, 1)
	require.Equal(t, users[0].ID, got[0].ID)
	require.Equal(t, model.RoleStudent, got[0].Role)
	require.True(t, now.Equal(got[0].CreatedAt))

	require.NoError(t, repo.SaveEvents(ctx, nil))
	require.Empty(t, repo.Events(ctx))
}

func TestSaveFailureIsStorageError(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(&failingStore{Memory: store.NewMemory()}, nil)

	err := repo.SaveAttendance(ctx, []model.AttendanceRecord{{ID: "r1"}})
	require.ErrorIs(t, err, model.ErrStorage)
	require.Equal(t, "Error saving data", model.Message(err, ""))
}

func TestUpdateSerialises(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	const n = 50
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = repo.Update(ctx, func(ctx context.Context) error {
				events := repo.Events(ctx)
				events = append(events, model.Event{ID: time.Now().String()})
				return repo.SaveEvents(ctx, events)
			})
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	require.Len(t, repo.Events(ctx), n)
}

func TestLoadFailureAbortsUpdate(t *testing.T) {
	ctx := context.Background()
	st := &unreachableStore{Memory: store.NewMemory()}
	repo := NewRepository(st, nil)
	require.NoError(t, repo.SaveUsers(ctx, []model.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}))

	st.down = true
	require.Empty(t, repo.Users(ctx), "plain readers stay tolerant")

	err := repo.Update(ctx, func(ctx context.Context) error {
		users, err := repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		return repo.SaveUsers(ctx, append(users, model.User{ID: "u4"}))
	})
	require.ErrorIs(t, err, model.ErrStorage)

	_, err = repo.LoadEvents(ctx)
	require.ErrorIs(t, err, model.ErrStorage)
	_, err = repo.LoadAttendance(ctx)
	require.ErrorIs(t, err, model.ErrStorage)

	st.down = false
	require.Len(t, repo.Users(ctx), 3)
}

func TestLoadStrictToleratesCorruptData(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repo := NewRepository(mem, nil)
	require.NoError(t, mem.Save(ctx, store.Users, []byte(`{not json`)))

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)
	require.NotNil(t, users)
}
