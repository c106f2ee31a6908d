package club

import (
	"context"

	"github.com/denbedilov/the-archivist/internal/models"
)

// EmptyDirectory is a Directory that knows nobody. It backs deployments
// without a member cache, where @handle targeting degrades to "not found"
// and reply targeting still works.
type EmptyDirectory struct{}

func (EmptyDirectory) Resolve(context.Context, int64, string) (models.Member, error) {
	return models.Member{}, ErrUnknownMember
}

func (EmptyDirectory) Lookup(context.Context, int64, int64) (models.Member, error) {
	return models.Member{}, ErrUnknownMember
}

func (EmptyDirectory) List(context.Context, int64) ([]models.Member, error) {
	return nil, nil
}
