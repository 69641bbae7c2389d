package formstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// Session binds one session id's store to a request. Storage failures never
// escape it: they are logged and surface as the status banner.
type Session struct {
	ID     string
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	banner string
}

func NewSession(id string, store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{ID: id, store: store, logger: logger.With("session", id)}
}

// Banner is the latest status message, empty when nothing needs saying.
func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

func (s *Session) SetBanner(msg string) {
	s.mu.Lock()
	s.banner = msg
	s.mu.Unlock()
}

func (s *Session) syncFailed(op string, err error) {
	s.logger.Error("formstate.sync.error", "op", op, "error", err)
	s.SetBanner("Could not " + op + "; showing the last known values.")
}

// Load reads the T tab. On a storage error it returns the defaults and sets
// the banner.
func Load[T Record](ctx context.Context, s *Session) T {
	rec, err := FromStore[T](ctx, s.store)
	if err != nil {
		s.syncFailed("load the "+rec.Tab()+" tab", err)
		return New[T]()
	}
	return rec
}

// Save loads the T tab, applies fields and writes it back. Invalid values
// return an ErrValidation error; storage errors are absorbed into the
// banner and the returned record reflects what was submitted.
func Save[T Record](ctx context.Context, s *Session, fields map[string]any) (T, error) {
	rec := Load[T](ctx, s)
	out, err := update(ctx, s.store, &rec, fields, s.logger)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, common.ErrValidation):
		return out, err
	default:
		s.syncFailed("save the "+rec.Tab()+" tab", err)
		applied, convErr := applyOnly(rec, fields)
		if convErr != nil {
			return rec, nil
		}
		return applied, nil
	}
}

// applyOnly applies fields to a copy of rec without writing anything.
func applyOnly[T Record](rec T, fields map[string]any) (T, error) {
	return update(context.Background(), discardStore{}, &rec, fields, slog.New(slog.DiscardHandler))
}

type discardStore struct{}

func (discardStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (discardStore) Set(context.Context, string, []byte) error { return nil }
func (discardStore) SetMany(context.Context, map[string][]byte) error { return nil }
func (discardStore) Delete(context.Context, string) error { return nil }

// Snapshot is every tab of a session.
type Snapshot struct {
	Client  Client               `json:"client"`
	Seller  Seller               `json:"seller"`
	Project ProjectSpecification `json:"project"`
}

func LoadSnapshot(ctx context.Context, s *Session) Snapshot {
	return Snapshot{
		Client:  Load[Client](ctx, s),
		Seller:  Load[Seller](ctx, s),
		Project: Load[ProjectSpecification](ctx, s),
	}
}

// States reports TabState for every tab.
func (sn Snapshot) States() map[string]constants.TabState {
	return map[string]constants.TabState{
		TabClient:  TabState(sn.Client),
		TabSeller:  TabState(sn.Seller),
		TabProject: TabState(sn.Project),
	}
}

// NewSnapshot is a snapshot with every tab's defaults applied.
func NewSnapshot() Snapshot {
	return Snapshot{Client: New[Client](), Seller: New[Seller](), Project: New[ProjectSpecification]()}
}
