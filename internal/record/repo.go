package record

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository is the document-store capability the adapter operates
// against. Successful returns are durable; nested field paths used with
// FindByField are expected to be indexed by the implementation.
type DocumentRepository interface {
	Insert(ctx context.Context, id uuid.UUID, doc map[string]interface{}) (map[string]interface{}, error)
	FindByID(ctx context.Context, id uuid.UUID) (map[string]interface{}, error)
	FindByField(ctx context.Context, path []string, value string) (map[string]interface{}, error)
	FindPage(ctx context.Context, skip, limit int) ([]map[string]interface{}, error)
	MergeUpdate(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (map[string]interface{}, error)
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
}
