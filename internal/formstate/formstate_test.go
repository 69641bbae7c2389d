package formstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{
			name: "populated",
			fields: map[string]any{
				"enterprise_name":      "Acme Corp",
				"industry":             "Retail",
				"discovered_urls":      []any{"https://acme.example", "https://acme.example/about"},
				"scraped_pages":        map[string]any{"https://acme.example": "Welcome"},
				"pain_points":          map[string]any{"Legacy billing": "• slow\n• manual"},
				"selected_pain_points": []any{"Legacy billing", "Data silos"},
			},
		},
		{
			name: "empty collections",
			fields: map[string]any{
				"enterprise_name":      "",
				"discovered_urls":      []any{},
				"scraped_pages":        map[string]any{},
				"pain_points":          nil,
				"selected_pain_points": []any{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := FromStore[Client](ctx, store)
			require.NoError(t, err)
			updated, err := Update(ctx, store, &rec, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, updated, rec)

			back, err := FromStore[Client](ctx, store)
			require.NoError(t, err)
			assert.Equal(t, updated, back)
		})
	}
}

func TestSetStoredSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := New[Seller]()
	_, err := Update(ctx, store, &rec, map[string]any{"selected_services": []string{"zeta", "alpha", "mid"}})
	require.NoError(t, err)

	raw, ok, err := store.Get(ctx, Key(TabSeller, "selected_services"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["alpha","mid","zeta"]`, string(raw))

	back, err := FromStore[Seller](ctx, store)
	require.NoError(t, err)
	assert.Equal(t, NewSet("mid", "zeta", "alpha"), back.SelectedServices)
	assert.True(t, back.SelectedServices.Has("alpha"))
}

func TestProjectRoundTripMapOfMaps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := New[ProjectSpecification]()
	fields := map[string]any{
		"title":    "Billing replacement",
		"budget":   150000,
		"pricing":  map[string]any{"currency": "EUR", "total": 40000.0},
		"sections": map[string]any{"Executive Summary": map[string]any{"body": "hello", "order": 1.0}},
		"outcomes": map[string]any{"pricing": "ok"},
	}
	updated, err := Update(ctx, store, &rec, fields)
	require.NoError(t, err)
	assert.Equal(t, "150000", updated.Budget)
	assert.Equal(t, "USD", updated.Currency)

	back, err := FromStore[ProjectSpecification](ctx, store)
	require.NoError(t, err)
	assert.Equal(t, updated, back)
	assert.Equal(t, "hello", back.Sections["Executive Summary"]["body"])
}

func TestUpdateNormalizesAndCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := New[ProjectSpecification]()
	pricing := map[string]any{"total": 40000, "currency": "EUR"}
	outcomes := map[string]string{"pricing": "ok"}

	updated, err := Update(ctx, store, &rec, map[string]any{"pricing": pricing, "outcomes": outcomes})
	require.NoError(t, err)
	assert.Equal(t, float64(40000), updated.Pricing["total"])

	back, err := FromStore[ProjectSpecification](ctx, store)
	require.NoError(t, err)
	assert.Equal(t, updated, back)

	pricing["currency"] = "mutated"
	outcomes["pricing"] = "mutated"
	assert.Equal(t, "EUR", updated.Pricing["currency"])
	assert.Equal(t, "ok", updated.Outcomes["pricing"])
}

func TestFromStoreDefaults(t *testing.T) {
	rec, err := FromStore[ProjectSpecification](context.Background(), NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "corporate", rec.Theme)
	assert.Empty(t, rec.Title)
}

func TestUpdateUnknownAndInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := New[Client]()

	out, err := Update(ctx, store, &rec, map[string]any{"enterprise_name": "Acme", "favourite_colour": "blue"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.EnterpriseName)

	before := store.Len()
	_, err = Update(ctx, store, &rec, map[string]any{"pain_points": []any{"not", "a", "map"}, "industry": "Retail"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, rec.Industry)
	assert.Equal(t, before, store.Len())

	back, err := FromStore[Client](ctx, store)
	require.NoError(t, err)
	assert.Empty(t, back.Industry)
}

func TestTabState(t *testing.T) {
	tests := []struct {
		name string
		rec  Client
		want constants.TabState
	}{
		{"empty", Client{}, constants.TabStateEmpty},
		{"partial", Client{EnterpriseName: "Acme", Notes: "x"}, constants.TabStatePartiallyFilled},
		{"mandatory", Client{EnterpriseName: "Acme", Industry: "Retail"}, constants.TabStateMandatoryComplete},
		{"ai", Client{EnterpriseName: "Acme", Industry: "Retail", PainPoints: map[string]string{"a": "b"}}, constants.TabStateAIEnhanced},
		{"ai without mandatory", Client{PainPoints: map[string]string{"a": "b"}}, constants.TabStatePartiallyFilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TabState(tt.rec))
		})
	}
	assert.Equal(t, constants.TabStateEmpty, TabState(New[ProjectSpecification]()))
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func (f *failingStore) SetMany(context.Context, map[string][]byte) error {
	return errors.New("redis down")
}

func TestSessionAbsorbsStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewSession("abc", &failingStore{}, nil)

	rec := Load[ProjectSpecification](ctx, s)
	assert.Equal(t, "USD", rec.Currency)
	assert.Contains(t, s.Banner(), "load the project tab")

	out, err := Save[Client](ctx, s, map[string]any{"enterprise_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.EnterpriseName)
	assert.Contains(t, s.Banner(), "save the client tab")

	_, err = Save[Client](ctx, s, map[string]any{"documents": "not-a-list"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSessionOverMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	s1 := NewSession("one", backend.Session("one"), nil)
	_, err := Save[Client](ctx, s1, map[string]any{"enterprise_name": "Acme", "industry": "Retail"})
	require.NoError(t, err)
	assert.Empty(t, s1.Banner())

	again := NewSession("one", backend.Session("one"), nil)
	snap := LoadSnapshot(ctx, again)
	assert.Equal(t, "Acme", snap.Client.EnterpriseName)
	assert.Equal(t, constants.TabStateMandatoryComplete, snap.States()[TabClient])

	other := LoadSnapshot(ctx, NewSession("two", backend.Session("two"), nil))
	assert.Empty(t, other.Client.EnterpriseName)
}

func TestSnapshotJSON(t *testing.T) {
	snap := NewSnapshot()
	snap.Client.SelectedPainPoints = NewSet("b", "a")
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"selected_pain_points":["a","b"]`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, snap.Client.SelectedPainPoints, back.Client.SelectedPainPoints)
}

func TestRedisPrefix(t *testing.T) {
	assert.Equal(t, "session:abc:client.industry", redisPrefix("abc")+Key(TabClient, "industry"))
}
