package profile

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/apitest"
	"github.com/dmitrijs2005/autoservice/internal/client/config"
	"github.com/dmitrijs2005/autoservice/internal/client/session"
	"github.com/dmitrijs2005/autoservice/internal/client/storage"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

// ---- helpers ----

const profilePath = apitest.VersionPrefix + "/profile/me"

type fixture struct {
	srv      *apitest.Server
	repo     storage.Repository
	sessions *session.Store
	svc      *Service
}

func setupWith(t *testing.T, repo storage.Repository) *fixture {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(config.APIConfig{
		BaseURL:       srv.URL,
		VersionPrefix: apitest.VersionPrefix,
		Timeout:       5 * time.Second,
	})
	sessions := session.NewStore(client, repo, nil, logging.Nop())
	client.SetTokenSource(sessions)
	client.OnUnauthorized(sessions.HandleUnauthorized)

	svc := NewService(client, repo, sessions, logging.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return &fixture{srv: srv, repo: repo, sessions: sessions, svc: svc}
}

func setup(t *testing.T) *fixture {
	return setupWith(t, storage.NewMemory())
}

func (f *fixture) login(t *testing.T, email string) int64 {
	t.Helper()
	id := f.srv.AddUser(email, "pw", "First-"+email[:1], "Last", "user")
	require.True(t, f.sessions.Login(context.Background(), email, "pw").Success)
	return id
}

func (f *fixture) local(t *testing.T, key string) (Profile, bool) {
	t.Helper()
	var p Profile
	found, err := storage.GetJSON(context.Background(), f.repo, key, &p)
	require.NoError(t, err)
	return p, found
}

func str(s string) *string { return &s }

// failingSetRepo loses every write.
type failingSetRepo struct {
	*storage.Memory
}

func (failingSetRepo) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

// ---- GetCurrent ----

func TestGetCurrent_NoSession(t *testing.T) {
	f := setup(t)

	res := f.svc.GetCurrent(context.Background())
	assert.True(t, res.Success)
	assert.True(t, res.IsMock)
	assert.True(t, res.IsEmpty)
	assert.False(t, res.FromBackend)
	assert.Equal(t, Profile{}, res.Data)
}

func TestGetCurrent_FromBackend(t *testing.T) {
	f := setup(t)
	id := f.login(t, "ann@example.com")
	key := StorageKey(session.Identity{ID: id}, true)
	require.NoError(t, storage.SetJSON(context.Background(), f.repo, key, Profile{Address: "Main st 1", City: "Riga"}))

	res := f.svc.GetCurrent(context.Background())
	require.True(t, res.Success)
	assert.True(t, res.FromBackend)
	assert.False(t, res.IsMock)
	assert.Equal(t, "ann@example.com", res.Data.Email)
	assert.Equal(t, "Main st 1", res.Data.Address, "local-only fields survive the merge")
	assert.True(t, res.Data.IsFromBackend)
	assert.Equal(t, "2026-03-04T05:06:07Z", res.Data.LastSynced)

	stored, found := f.local(t, key)
	require.True(t, found)
	assert.Equal(t, res.Data, stored)
}

func TestGetCurrent_SynthesizesFromIdentity(t *testing.T) {
	f := setup(t)
	f.login(t, "ann@example.com")
	f.srv.Fail(http.MethodGet, profilePath, http.StatusInternalServerError)
	ctx := context.Background()

	first := f.svc.GetCurrent(ctx)
	require.True(t, first.Success)
	assert.True(t, first.IsMock)
	assert.True(t, first.IsNew)
	assert.Equal(t, "First-a", first.Data.FirstName)
	assert.Equal(t, "ann@example.com", first.Data.Email)
	assert.Empty(t, first.Data.Address)
	assert.Empty(t, first.Data.City)

	second := f.svc.GetCurrent(ctx)
	assert.True(t, second.IsMock)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Data, second.Data)
}

func TestGetCurrent_NeverFails(t *testing.T) {
	f := setup(t)
	f.login(t, "ann@example.com")
	f.srv.Close()
	ctx := context.Background()

	res := f.svc.GetCurrent(ctx)
	assert.True(t, res.Success)
	assert.True(t, res.IsMock)

	up := f.svc.Update(ctx, Update{Phone: str("222")})
	assert.True(t, up.Success)
	assert.True(t, up.IsMock)
	assert.Equal(t, "222", up.Data.Phone)
}

// ---- Update ----

func TestUpdate_Remote(t *testing.T) {
	f := setup(t)
	id := f.login(t, "ann@example.com")
	ctx := context.Background()

	res := f.svc.Update(ctx, Update{FirstName: str("Anna"), City: str("Tartu")})
	require.True(t, res.Success)
	assert.True(t, res.FromBackend)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "Anna", res.Data.FirstName)
	assert.Equal(t, "Tartu", res.Data.City)
	assert.True(t, res.Data.IsFromBackend)

	assert.Equal(t, "Anna", f.srv.Profile(id)["firstName"])

	ident, _ := f.sessions.Identity()
	assert.Equal(t, "Anna", ident.FirstName, "identity mirror patched")

	stored, _ := f.local(t, StorageKey(ident, true))
	assert.Equal(t, res.Data, stored)
}

func TestUpdate_LocalFallback(t *testing.T) {
	f := setup(t)
	id := f.login(t, "ann@example.com")
	ctx := context.Background()
	key := StorageKey(session.Identity{ID: id}, true)

	require.NoError(t, storage.SetJSON(ctx, f.repo, key, Profile{
		ID: 5, UserID: id, FirstName: "Ann", Email: "ann@example.com", CreatedAt: "2025-01-01T00:00:00Z",
	}))
	f.srv.Fail(http.MethodPut, profilePath, http.StatusServiceUnavailable)

	res := f.svc.Update(ctx, Update{Phone: str("111"), LastName: str("Lee")})
	require.True(t, res.Success)
	assert.True(t, res.IsMock)
	assert.False(t, res.FromBackend)
	assert.Equal(t, LocalOnlyWarning, res.Warning)

	stored, found := f.local(t, key)
	require.True(t, found)
	assert.Equal(t, int64(5), stored.ID)
	assert.Equal(t, "2025-01-01T00:00:00Z", stored.CreatedAt)
	assert.Equal(t, "111", stored.Phone)
	assert.False(t, stored.IsFromBackend)

	ident, _ := f.sessions.Identity()
	assert.Equal(t, "Lee", ident.LastName)
	assert.Equal(t, "111", ident.Phone)
}

func TestUpdate_BothWritesFail(t *testing.T) {
	f := setupWith(t, failingSetRepo{storage.NewMemory()})
	f.srv.Fail(http.MethodPut, profilePath, http.StatusInternalServerError)

	res := f.svc.Update(context.Background(), Update{Phone: str("1")})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, "1", res.Data.Phone)
}

func TestGetCurrent_RemoteClearsLocalField(t *testing.T) {
	f := setup(t)
	id := f.login(t, "ann@example.com")
	ctx := context.Background()
	key := StorageKey(session.Identity{ID: id}, true)
	require.NoError(t, storage.SetJSON(ctx, f.repo, key, Profile{
		Phone: "111", City: "Riga", Address: "Main st 1", LastSynced: "2025-01-01T00:00:00Z",
	}))
	f.srv.SetProfile(id, map[string]any{
		"id": id, "userId": id, "email": "ann@example.com", "firstName": "Ann",
		"phone": "", "city": nil, "lastSynced": "1999-01-01T00:00:00Z", "isFromBackend": false,
	})

	res := f.svc.GetCurrent(ctx)
	require.True(t, res.FromBackend)
	assert.Empty(t, res.Data.Phone, "empty remote value wins")
	assert.Empty(t, res.Data.City, "null remote value clears the field")
	assert.Equal(t, "Main st 1", res.Data.Address, "field the backend did not send is kept")
	assert.Equal(t, "Ann", res.Data.FirstName)
	assert.True(t, res.Data.IsFromBackend)
	assert.Equal(t, "2026-03-04T05:06:07Z", res.Data.LastSynced)

	stored, _ := f.local(t, key)
	assert.Empty(t, stored.Phone)
}

// emailIdentity is a session keyed by email only, as when neither the
// auth payload nor the token carries a numeric id.
type emailIdentity struct {
	ident session.Identity
}

func (e *emailIdentity) Identity() (session.Identity, bool) { return e.ident, true }

func (e *emailIdentity) PatchIdentity(_ context.Context, p session.IdentityPatch) error {
	if p.Email != "" {
		e.ident.Email = p.Email
	}
	if p.FirstName != "" {
		e.ident.FirstName = p.FirstName
	}
	return nil
}

type unreachable struct{}

func (unreachable) Do(context.Context, api.Request) (*api.Response, error) {
	return nil, api.ErrUnavailable
}

func TestUpdate_EmailChangeMovesRecord(t *testing.T) {
	repo := storage.NewMemory()
	ids := &emailIdentity{ident: session.Identity{Email: "old@x.com", FirstName: "Ann"}}
	svc := NewService(unreachable{}, repo, ids, logging.Nop())
	ctx := context.Background()

	res := svc.Update(ctx, Update{Email: str("new@x.com"), City: str("Riga")})
	require.True(t, res.Success)
	assert.Equal(t, "new@x.com", ids.ident.Email)

	got := svc.GetCurrent(ctx)
	require.True(t, got.Success)
	assert.False(t, got.IsNew)
	assert.Equal(t, "Riga", got.Data.City)
	assert.Equal(t, "new@x.com", got.Data.Email)

	old, err := repo.Get(ctx, KeyPrefix+"old@x.com")
	require.NoError(t, err)
	assert.Nil(t, old, "record no longer lives under the previous key")
}

// ---- storage keys ----

func TestStorageKey(t *testing.T) {
	tests := []struct {
		name  string
		ident session.Identity
		ok    bool
		want  string
	}{
		{"id wins", session.Identity{ID: 7, Email: "a@b.c"}, true, "profile:7"},
		{"email", session.Identity{Email: " A@B.c "}, true, "profile:a@b.c"},
		{"blank identity", session.Identity{}, true, DefaultKey},
		{"no session", session.Identity{ID: 7}, false, DefaultKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StorageKey(tt.ident, tt.ok))
		})
	}
}

func TestMigrateLegacy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, LegacyKey, []byte(`{"firstName":"Old","phone":"9"}`)))

	require.NoError(t, f.svc.MigrateLegacy(ctx))
	raw, _ := f.repo.Get(ctx, LegacyKey)
	assert.NotNil(t, raw, "kept until someone signs in")

	id := f.login(t, "ann@example.com")
	key := StorageKey(session.Identity{ID: id}, true)

	require.NoError(t, f.svc.MigrateLegacy(ctx))
	once, found := f.local(t, key)
	require.True(t, found)
	raw, _ = f.repo.Get(ctx, LegacyKey)
	assert.Nil(t, raw)

	assert.Equal(t, "Old", once.FirstName)
	assert.Equal(t, "9", once.Phone)
	assert.Equal(t, id, once.UserID)
	assert.Equal(t, "ann@example.com", once.Email)
	assert.Equal(t, "2026-03-04T05:06:07Z", once.CreatedAt)

	require.NoError(t, f.svc.MigrateLegacy(ctx))
	twice, _ := f.local(t, key)
	assert.Equal(t, once, twice)
}

func TestMigrateLegacy_ExistingRecordWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.login(t, "ann@example.com")
	key := StorageKey(session.Identity{ID: id}, true)

	require.NoError(t, storage.SetJSON(ctx, f.repo, key, Profile{FirstName: "Current"}))
	require.NoError(t, f.repo.Set(ctx, LegacyKey, []byte(`{"firstName":"Old"}`)))

	require.NoError(t, f.svc.MigrateLegacy(ctx))
	p, _ := f.local(t, key)
	assert.Equal(t, "Current", p.FirstName)
	raw, _ := f.repo.Get(ctx, LegacyKey)
	assert.Nil(t, raw)
}

func TestCleanup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, k := range []string{"profile:2", "profile:x@y.z", DefaultKey} {
		require.NoError(t, f.repo.Set(ctx, k, []byte(`{}`)))
	}

	require.NoError(t, f.svc.Cleanup(ctx), "no-op without a session")
	keys, _ := storage.KeysWithPrefix(ctx, f.repo, KeyPrefix)
	assert.Len(t, keys, 3)

	id := f.login(t, "ann@example.com")
	own := StorageKey(session.Identity{ID: id}, true)
	require.NoError(t, f.repo.Set(ctx, own, []byte(`{}`)))

	require.NoError(t, f.svc.Cleanup(ctx))
	keys, _ = storage.KeysWithPrefix(ctx, f.repo, KeyPrefix)
	assert.Equal(t, []string{own}, keys)

	raw, _ := f.repo.Get(ctx, session.KeyToken)
	assert.NotNil(t, raw, "non-profile keys untouched")
}

// ---- shared device ----

func TestSharedDevice_NoProfileLeak(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sessions.OnIdentityChange(f.svc.OnIdentityChange(false))

	idA := f.login(t, "a@example.com")
	f.srv.Fail(http.MethodPut, profilePath, http.StatusServiceUnavailable)
	require.True(t, f.svc.Update(ctx, Update{Phone: str("111")}).Success)
	f.sessions.Logout(ctx)

	keyA := StorageKey(session.Identity{ID: idA}, true)
	_, found := f.local(t, keyA)
	require.True(t, found, "A's record survives logout")

	f.login(t, "b@example.com")
	_, found = f.local(t, keyA)
	assert.False(t, found, "cleanup removed A's orphaned record")

	res := f.svc.GetCurrent(ctx)
	require.True(t, res.Success)
	assert.NotEqual(t, "111", res.Data.Phone)
	assert.Equal(t, "b@example.com", res.Data.Email)
}

func TestOnIdentityChange_PurgeOnLogout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sessions.OnIdentityChange(f.svc.OnIdentityChange(true))

	id := f.login(t, "a@example.com")
	require.True(t, f.svc.GetCurrent(ctx).FromBackend)
	key := StorageKey(session.Identity{ID: id}, true)
	_, found := f.local(t, key)
	require.True(t, found)

	f.sessions.Logout(ctx)
	_, found = f.local(t, key)
	assert.False(t, found)
}
