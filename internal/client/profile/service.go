package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/session"
	"github.com/dmitrijs2005/autoservice/internal/client/storage"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

const mePath = "/profile/me"

// Doer issues api requests; *api.Client implements it.
type Doer interface {
	Do(ctx context.Context, r api.Request) (*api.Response, error)
}

// IdentityProvider is the part of the session store the profile needs.
type IdentityProvider interface {
	Identity() (session.Identity, bool)
	PatchIdentity(ctx context.Context, p session.IdentityPatch) error
}

type Service struct {
	client Doer
	repo   storage.Repository
	ids    IdentityProvider
	log    logging.Logger
	base   api.Base
	now    func() time.Time
}

type Option func(*Service)

// WithBase selects the base path of the profile endpoints.
func WithBase(b api.Base) Option {
	return func(s *Service) { s.base = b }
}

func NewService(client Doer, repo storage.Repository, ids IdentityProvider, log logging.Logger, opts ...Option) *Service {
	s := &Service{client: client, repo: repo, ids: ids, log: log, base: api.BaseV1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) key() (string, session.Identity, bool) {
	ident, ok := s.ids.Identity()
	return StorageKey(ident, ok), ident, ok
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// GetCurrent returns the current user's profile from the backend, or the
// best local substitute when the backend fails.
func (s *Service) GetCurrent(ctx context.Context) Result {
	key, ident, ok := s.key()
	local, found := s.load(ctx, key)

	merged, err := s.fetch(ctx, http.MethodGet, nil, local)
	if err == nil {
		merged.IsFromBackend = true
		merged.LastSynced = s.timestamp()

		res := Result{Success: true, Data: merged, FromBackend: true}
		if err := s.save(ctx, key, merged); err != nil {
			res.Warning = "The profile could not be cached on this device."
		}
		return res
	}

	s.log.Warn(ctx, "profile fetch failed, using local data", "key", key, "error", err)

	if found {
		return Result{Success: true, Data: local, IsMock: true}
	}

	if ok {
		p := fromIdentity(ident, s.timestamp())
		res := Result{Success: true, Data: p, IsMock: true, IsNew: true}
		if err := s.save(ctx, key, p); err != nil {
			res.Warning = "The profile could not be cached on this device."
		}
		return res
	}

	return Result{Success: true, Data: Profile{}, IsMock: true, IsEmpty: true}
}

// Update applies u on the backend, or locally when the backend fails, and
// mirrors the name, email and phone into the session identity.
func (s *Service) Update(ctx context.Context, u Update) Result {
	key, ident, ok := s.key()
	local, found := s.load(ctx, key)
	if !found && ok {
		local = fromIdentity(ident, s.timestamp())
	}

	merged, err := s.fetch(ctx, http.MethodPut, u, u.apply(local))
	if err == nil {
		merged.IsFromBackend = true
		merged.LastSynced = s.timestamp()

		res := Result{Success: true, Data: merged, FromBackend: true}
		if err := s.save(ctx, key, merged); err != nil {
			res.Warning = "The profile was saved on the server but could not be cached on this device."
		}
		s.mirror(ctx, merged)
		s.follow(ctx, key, merged)
		return res
	}

	s.log.Warn(ctx, "profile update did not reach the server, saving locally", "key", key, "error", err)

	merged = u.apply(local)
	merged.UpdatedAt = s.timestamp()
	merged.IsFromBackend = false
	if merged.CreatedAt == "" {
		merged.CreatedAt = merged.UpdatedAt
	}

	if err := s.save(ctx, key, merged); err != nil {
		// both writes failed; the edit is lost unless the caller retries
		return Result{Data: merged, IsMock: true, Warning: "The profile could not be saved. Please try again."}
	}
	s.mirror(ctx, merged)
	s.follow(ctx, key, merged)
	return Result{Success: true, Data: merged, IsMock: true, Warning: LocalOnlyWarning}
}

// fetch calls the profile endpoint and merges the answer into local.
func (s *Service) fetch(ctx context.Context, method string, body any, local Profile) (Profile, error) {
	req := api.Request{Method: method, Base: s.base, Path: mePath}
	if body != nil {
		req.Body = body
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return Profile{}, err
	}
	remote, err := api.DecodeOne[map[string]json.RawMessage](resp.Data)
	if err != nil {
		return Profile{}, err
	}
	return mergeRemote(local, remote)
}

// follow moves the record saved under oldKey when mirroring p into the
// session changed the key the user's profile lives under. That happens
// when a user keyed by email changes the email.
func (s *Service) follow(ctx context.Context, oldKey string, p Profile) {
	newKey, _, ok := s.key()
	if !ok || newKey == oldKey {
		return
	}
	if err := s.save(ctx, newKey, p); err != nil {
		return
	}
	if err := s.repo.Delete(ctx, oldKey); err != nil {
		s.log.Error(ctx, "failed to remove profile under previous key", "key", oldKey, "error", err)
	}
}

func (s *Service) mirror(ctx context.Context, p Profile) {
	if _, ok := s.ids.Identity(); !ok {
		return
	}
	err := s.ids.PatchIdentity(ctx, session.IdentityPatch{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	})
	if err != nil {
		s.log.Error(ctx, "failed to mirror profile into session", "error", err)
	}
}

func (s *Service) load(ctx context.Context, key string) (Profile, bool) {
	var p Profile
	found, err := storage.GetJSON(ctx, s.repo, key, &p)
	if err != nil {
		s.log.Error(ctx, "failed to read local profile", "key", key, "error", err)
		return Profile{}, false
	}
	return p, found
}

func (s *Service) save(ctx context.Context, key string, p Profile) error {
	if err := storage.SetJSON(ctx, s.repo, key, p); err != nil {
		s.log.Error(ctx, "failed to save local profile", "key", key, "error", err)
		return err
	}
	return nil
}

// MigrateLegacy moves a record stored under the unkeyed legacy key to the
// current user's key. It does nothing until someone is signed in and is
// safe to run repeatedly.
func (s *Service) MigrateLegacy(ctx context.Context) error {
	raw, err := s.repo.Get(ctx, LegacyKey)
	if err != nil {
		return fmt.Errorf("read legacy profile: %w", err)
	}
	if raw == nil {
		return nil
	}

	key, ident, ok := s.key()
	if !ok {
		return nil
	}

	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if existing != nil {
		// the user already has a record; the legacy one must not leak to
		// whoever signs in next
		return s.repo.Delete(ctx, LegacyKey)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn(ctx, "dropping unreadable legacy profile", "error", err)
		return s.repo.Delete(ctx, LegacyKey)
	}

	now := s.timestamp()
	if p.UserID == 0 {
		p.UserID = ident.ID
	}
	if p.Email == "" {
		p.Email = ident.Email
	}
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = now
	}

	if err := storage.SetJSON(ctx, s.repo, key, p); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.repo.Delete(ctx, LegacyKey); err != nil {
		return fmt.Errorf("delete legacy profile: %w", err)
	}
	s.log.Info(ctx, "migrated legacy profile", "key", key)
	return nil
}

// Cleanup deletes every profile record except the current user's.
func (s *Service) Cleanup(ctx context.Context) error {
	key, _, ok := s.key()
	if !ok {
		return nil
	}

	keys, err := storage.KeysWithPrefix(ctx, s.repo, KeyPrefix)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	stale := keys[:0]
	for _, k := range keys {
		if k != key {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.repo.DeleteMany(ctx, stale...); err != nil {
		return fmt.Errorf("delete stale profiles: %w", err)
	}
	s.log.Debug(ctx, "removed stale profiles", "count", len(stale))
	return nil
}

// Clear removes the record belonging to ident.
func (s *Service) Clear(ctx context.Context, ident session.Identity) error {
	return s.repo.Delete(ctx, StorageKey(ident, true))
}

// OnIdentityChange is registered with the session store. A new identity
// triggers migration, cleanup and a profile fetch; with purge set, the record of a user
// who logged out is removed.
func (s *Service) OnIdentityChange(purge bool) session.IdentityListener {
	return func(ctx context.Context, prev, next *session.Identity) {
		if next == nil {
			if purge && prev != nil {
				if err := s.Clear(ctx, *prev); err != nil {
					s.log.Error(ctx, "failed to purge profile on logout", "error", err)
				}
			}
			return
		}
		if err := s.MigrateLegacy(ctx); err != nil {
			s.log.Error(ctx, "legacy profile migration failed", "error", err)
		}
		if err := s.Cleanup(ctx); err != nil {
			s.log.Error(ctx, "profile cleanup failed", "error", err)
		}
		// warm the local record so the profile is available offline
		if res := s.GetCurrent(ctx); !res.FromBackend {
			s.log.Debug(ctx, "profile prefetch served locally", "new", res.IsNew)
		}
	}
}
