package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/models"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

// Doer issues api requests; *api.Client implements it.
type Doer interface {
	Do(ctx context.Context, r api.Request) (*api.Response, error)
}

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match what
// the backend and the forms call them.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Store is the client-side copy of one backend collection.
type Store[T models.Entity] struct {
	client Doer
	ep     Endpoint
	log    logging.Logger

	mu          sync.Mutex
	items       []T
	outstanding int
	err         string
	version     uint64
	closed      bool
	subscribers []func()
}

func New[T models.Entity](c Doer, ep Endpoint, log logging.Logger) *Store[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &Store[T]{client: c, ep: ep, log: log.With("resource", ep.Name)}
}

func (s *Store[T]) Endpoint() Endpoint { return s.ep }

// Items returns a copy of the current collection.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

func (s *Store[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding > 0
}

// Err returns the message of the last failure, "" if the last operation
// succeeded or a fetch is in progress.
func (s *Store[T]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Version increases on every state change.
func (s *Store[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers fn to run after every state change. fn must not
// call back into the Store's mutating methods.
func (s *Store[T]) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Close detaches the Store from its consumers: responses that arrive
// later are discarded and subscribers are no longer notified.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subscribers = nil
}

// FetchAll replaces the collection with the server's. Failures are kept
// in Err and leave the items unchanged.
func (s *Store[T]) FetchAll(ctx context.Context) {
	s.list(ctx, s.ep.Path, nil)
}

// Search replaces the collection with the server-side matches for q. An
// empty q restores the unfiltered collection.
func (s *Store[T]) Search(ctx context.Context, q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		s.FetchAll(ctx)
		return
	}
	s.list(ctx, s.ep.Path+"/search", url.Values{"q": {q}})
}

func (s *Store[T]) list(ctx context.Context, path string, query url.Values) {
	if !s.begin(true) {
		return
	}

	resp, err := s.client.Do(ctx, api.Request{Method: http.MethodGet, Base: s.ep.Base, Path: path, Query: query})
	var items []T
	if err == nil {
		items, err = api.DecodeList[T](resp.Data)
	}

	if err != nil {
		s.log.Warn(ctx, "fetch failed", "path", path, "error", err)
		s.finish(func() { s.err = Humanize(err) })
		return
	}

	s.log.Debug(ctx, "fetched collection", "path", path, "count", len(items))
	s.finish(func() { s.items = items })
}

// Get fetches one entity without touching the collection.
func (s *Store[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	resp, err := s.client.Do(ctx, api.Request{Method: http.MethodGet, Base: s.ep.Base, Path: s.itemPath(id)})
	if err != nil {
		return zero, err
	}
	return api.DecodeOne[T](resp.Data)
}

// Create submits item and appends the server's copy to the collection.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	return s.mutate(ctx, "create", http.MethodPost, s.ep.Path, item, func(created T) {
		s.items = append(s.items, created)
	})
}

// Update submits item as the new state of id and replaces the element
// with that id in the collection.
func (s *Store[T]) Update(ctx context.Context, id int64, item T) (T, error) {
	return s.mutate(ctx, "update", http.MethodPut, s.itemPath(id), item, func(updated T) {
		for i := range s.items {
			if s.items[i].GetID() == id {
				s.items[i] = updated
				return
			}
		}
	})
}

// Delete removes id on the server and from the collection.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	if !s.begin(false) {
		return ErrClosed
	}

	_, err := s.client.Do(ctx, api.Request{Method: http.MethodDelete, Base: s.ep.Base, Path: s.itemPath(id)})
	if err != nil {
		err = deleteError(err)
		s.log.Warn(ctx, "delete failed", "id", id, "error", err)
		s.finish(func() { s.err = Humanize(err) })
		return err
	}

	s.log.Info(ctx, "deleted", "id", id)
	s.finish(func() {
		kept := s.items[:0:0]
		for _, it := range s.items {
			if it.GetID() != id {
				kept = append(kept, it)
			}
		}
		s.items = kept
	})
	return nil
}

func (s *Store[T]) mutate(ctx context.Context, op, method, path string, item T, apply func(T)) (T, error) {
	var zero T
	if !s.begin(false) {
		return zero, ErrClosed
	}

	if err := validate.StructCtx(ctx, item); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalid, err)
		s.finish(func() { s.err = Humanize(err) })
		return zero, err
	}

	resp, err := s.client.Do(ctx, api.Request{Method: method, Base: s.ep.Base, Path: path, Body: item})
	var out T
	if err == nil {
		out, err = api.DecodeOne[T](resp.Data)
	}
	if err != nil {
		s.log.Warn(ctx, op+" failed", "path", path, "error", err)
		s.finish(func() { s.err = Humanize(err) })
		return zero, err
	}

	s.log.Info(ctx, op+"d", "id", out.GetID())
	s.finish(func() { apply(out) })
	return out, nil
}

// begin marks a request outstanding. A fetch clears the previous error.
func (s *Store[T]) begin(fetch bool) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.outstanding++
	if fetch {
		s.err = ""
	}
	s.version++
	subs := s.subscribers
	s.mu.Unlock()

	notify(subs)
	return true
}

// finish applies a settled response unless the Store was closed meanwhile.
func (s *Store[T]) finish(apply func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.outstanding--
	apply()
	s.version++
	subs := s.subscribers
	s.mu.Unlock()

	notify(subs)
}

func (s *Store[T]) itemPath(id int64) string {
	return s.ep.Path + "/" + strconv.FormatInt(id, 10)
}

func notify(subs []func()) {
	for _, fn := range subs {
		fn()
	}
}
