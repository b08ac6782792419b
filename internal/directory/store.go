package directory

import (
	"context"

	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// Store persists directory members. The postgres implementation backs
// normal operation; the memory implementation backs degraded startup
// and tests.
type Store interface {
	Insert(ctx context.Context, member *Member) error
	Get(ctx context.Context, id types.ID) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context, filter Filter) ([]Member, error)
	Update(ctx context.Context, member *Member) error
	Deactivate(ctx context.Context, id types.ID) error
	Delete(ctx context.Context, id types.ID) error

	// Sync bookkeeping for members provisioned while the credential
	// store was unreachable.
	MarkPendingSync(ctx context.Context, id types.ID) error
	MarkSynced(ctx context.Context, id types.ID) error
	ListPendingSync(ctx context.Context) ([]Member, error)
}
