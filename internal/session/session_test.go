package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"hackattend/internal/model"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "test:"),
	}
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(st)

			_, err := m.Current(ctx, "")
			require.ErrorIs(t, err, ErrNoSession)
			_, err = m.Current(ctx, "missing")
			require.ErrorIs(t, err, ErrNoSession)

			u := model.User{ID: "u1", FirstName: "Ada", Role: model.RoleStudent, Status: model.StatusPending}
			s, err := m.Set(ctx, u)
			require.NoError(t, err)
			require.NotEmpty(t, s.ID)

			got, err := m.Current(ctx, s.ID)
			require.NoError(t, err)
			require.Equal(t, "Ada", got.FirstName)

			require.NoError(t, m.Clear(ctx, s.ID))
			_, err = m.Current(ctx, s.ID)
			require.ErrorIs(t, err, ErrNoSession)
			require.NoError(t, m.Clear(ctx, s.ID), "clearing twice is fine")
		})
	}
}

func TestRefreshUpdatesEverySessionOfUser(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(st)
			u := model.User{ID: "u1", Role: model.RoleStudent, Status: model.StatusPending}
			other := model.User{ID: "u2", Role: model.RoleStudent}

			a, err := m.Set(ctx, u)
			require.NoError(t, err)
			b, err := m.Set(ctx, u)
			require.NoError(t, err)
			c, err := m.Set(ctx, other)
			require.NoError(t, err)

			u.Role = model.RoleAdmin
			u.Status = model.StatusVerified
			require.NoError(t, m.Refresh(ctx, u))

			for _, sid := range []string{a.ID, b.ID} {
				got, err := m.Current(ctx, sid)
				require.NoError(t, err)
				require.Equal(t, model.RoleAdmin, got.Role)
			}
			got, err := m.Current(ctx, c.ID)
			require.NoError(t, err)
			require.Equal(t, model.RoleStudent, got.Role)

			require.NoError(t, m.Purge(ctx, u.ID))
			_, err = m.Current(ctx, a.ID)
			require.ErrorIs(t, err, ErrNoSession)
			_, err = m.Current(ctx, c.ID)
			require.NoError(t, err)
		})
	}
}

// logoutMidRefresh deletes each session right after it is read, the way a
// logout landing between Refresh's read and write would.
type logoutMidRefresh struct{ Store }

func (l logoutMidRefresh) Get(ctx context.Context, id string) (*Session, error) {
	s, err := l.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.Store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func TestRefreshDoesNotResurrectClearedSession(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			u := model.User{ID: "u1", Role: model.RoleStudent, Status: model.StatusPending}
			s, err := NewManager(st).Set(ctx, u)
			require.NoError(t, err)

			u.Status = model.StatusVerified
			require.NoError(t, NewManager(logoutMidRefresh{Store: st}).Refresh(ctx, u))

			_, err = st.Get(ctx, s.ID)
			require.ErrorIs(t, err, ErrNoSession)
			ids, err := st.IDsForUser(ctx, u.ID)
			require.NoError(t, err)
			require.Empty(t, ids)
		})
	}
}

func TestReplaceRequiresExistingSession(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ghost := Session{ID: "ghost", User: model.User{ID: "u1", Role: model.RoleStudent}}
			require.ErrorIs(t, st.Replace(ctx, ghost), ErrNoSession)
			_, err := st.Get(ctx, "ghost")
			require.ErrorIs(t, err, ErrNoSession)

			require.NoError(t, st.Put(ctx, ghost))
			ghost.User.FirstName = "Ada"
			require.NoError(t, st.Replace(ctx, ghost))
			got, err := st.Get(ctx, "ghost")
			require.NoError(t, err)
			require.Equal(t, "Ada", got.User.FirstName)
		})
	}
}

func TestCheckAndLanding(t *testing.T) {
	admin := &model.User{Role: model.RoleAdmin}
	student := &model.User{Role: model.RoleStudent}

	require.Equal(t, Absent, Check(nil, model.RoleAdmin))
	require.Equal(t, Allow, Check(admin, model.RoleAdmin))
	require.Equal(t, Mismatch, Check(student, model.RoleAdmin))
	require.Equal(t, Mismatch, Check(admin, model.RoleStudent))

	require.Equal(t, AdminPath, Landing(model.RoleAdmin))
	require.Equal(t, DashboardPath, Landing(model.RoleStudent))
	require.Equal(t, LoginPath, Landing(model.Role(0)))
}
