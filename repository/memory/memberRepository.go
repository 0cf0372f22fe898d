package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/repository"
)

type MemberRepository struct {
	mu      sync.RWMutex
	members map[string]entity.Member
}

func NewMemberRepository(members ...entity.Member) *MemberRepository {
	r := &MemberRepository{members: map[string]entity.Member{}}
	for _, m := range members {
		r.members[m.ID] = m
	}
	return r
}

// Put adds or replaces a directory record. It exists for seeding; the roster
// core only reads.
func (r *MemberRepository) Put(member entity.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.ID] = member
}

func (r *MemberRepository) Resolve(_ context.Context, ID string) (*entity.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

func (r *MemberRepository) FindAll(_ context.Context) ([]*entity.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*entity.Member, 0, len(r.members))
	for _, m := range r.members {
		m := m
		members = append(members, &m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}
