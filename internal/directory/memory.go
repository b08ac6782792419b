package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// MemoryStore is an in-memory Store. Used when the platform starts
// without a database (degraded mode) and throughout the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[types.ID]*Member
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[types.ID]*Member)}
}

func (s *MemoryStore) Insert(ctx context.Context, member *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if strings.EqualFold(existing.Email, member.Email) {
			return errors.Conflict("member with this email already exists")
		}
	}

	copied := *member
	s.members[member.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id types.ID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[id]
	if !ok {
		return nil, errors.NotFound("member", id.String())
	}
	copied := *member
	return &copied, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, member := range s.members {
		if strings.EqualFold(member.Email, email) {
			copied := *member
			return &copied, nil
		}
	}
	return nil, errors.NotFound("member", email)
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []Member
	for _, member := range s.members {
		if filter.Role != nil && member.Role != *filter.Role {
			continue
		}
		if filter.Municipality != "" && member.Territory.Municipality != filter.Municipality {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(member.FullName), needle) &&
				!strings.Contains(strings.ToLower(member.Email), needle) {
				continue
			}
		}
		if filter.ActiveOnly && !member.Active {
			continue
		}
		members = append(members, *member)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].FullName < members[j].FullName
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(members) {
			return nil, nil
		}
		members = members[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(members) {
		members = members[:filter.Limit]
	}

	return members, nil
}

func (s *MemoryStore) Update(ctx context.Context, member *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok {
		return errors.NotFound("member", member.ID.String())
	}

	for id, other := range s.members {
		if id != member.ID && strings.EqualFold(other.Email, member.Email) {
			return errors.Conflict("member with this email already exists")
		}
	}

	existing.FullName = member.FullName
	existing.Email = member.Email
	existing.Phone = member.Phone
	existing.Territory.Locality = member.Territory.Locality
	existing.TermEnd = member.TermEnd
	return nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return errors.NotFound("member", id.String())
	}
	member.Active = false
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return errors.NotFound("member", id.String())
	}
	delete(s.members, id)
	return nil
}

func (s *MemoryStore) MarkPendingSync(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return errors.NotFound("member", id.String())
	}
	member.PendingSync = true
	return nil
}

func (s *MemoryStore) MarkSynced(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return errors.NotFound("member", id.String())
	}
	member.PendingSync = false
	return nil
}

func (s *MemoryStore) ListPendingSync(ctx context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []Member
	for _, member := range s.members {
		if member.PendingSync {
			members = append(members, *member)
		}
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})

	return members, nil
}
