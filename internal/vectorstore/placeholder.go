package vectorstore

import (
	"context"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
)

// placeholderStore answers every search with the single PlaceholderText
// chunk. It is the last link of the fallback chain and cannot fail.
type placeholderStore struct {
	md chunk.Metadata
}

func (placeholderStore) Backend() string { return BackendPlaceholder }

func (placeholderStore) Count(context.Context, string) (int, error) { return 1, nil }

func (placeholderStore) Add(context.Context, string, []Record) error { return nil }

func (p placeholderStore) Search(_ context.Context, _ string, _ []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	return []Match{{Content: PlaceholderText, Metadata: p.md}}, nil
}

func (placeholderStore) Close() error { return nil }
