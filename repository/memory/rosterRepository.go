// Package memory holds in-process implementations of the repositories, used
// for local runs without MongoDB and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type RosterRepository struct {
	mu          sync.Mutex
	rosters     map[bson.ObjectID]*entity.Roster
	subscribers map[chan entity.RosterChange]struct{}
}

func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		rosters:     map[bson.ObjectID]*entity.Roster{},
		subscribers: map[chan entity.RosterChange]struct{}{},
	}
}

func (r *RosterRepository) Insert(_ context.Context, roster *entity.Roster) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roster.ID.IsZero() {
		roster.ID = bson.NewObjectID()
	}
	if _, ok := r.rosters[roster.ID]; ok {
		return repository.ErrDuplicate
	}

	stored := cloneRoster(roster)
	r.rosters[roster.ID] = stored
	r.publish(entity.RosterChange{Type: entity.RosterInserted, RosterID: roster.ID, Roster: cloneRoster(stored)})
	return nil
}

func (r *RosterRepository) ReplaceAssignments(_ context.Context, roster *entity.Roster, pending *entity.NotificationBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rosters[roster.ID]
	if !ok {
		return repository.ErrNotFound
	}

	next := cloneRoster(roster)
	stored.ServiceDate = next.ServiceDate
	stored.Label = next.Label
	stored.Leadership = next.Leadership
	stored.SupportTeam = next.SupportTeam
	stored.GreetingTeam = next.GreetingTeam
	stored.SpecialAppearances = next.SpecialAppearances
	stored.AssignedAddresses = next.AssignedAddresses
	stored.UpdatedAt = next.UpdatedAt
	if pending != nil {
		stored.PendingBatches = append(stored.PendingBatches, cloneBatch(pending))
	}

	r.publish(entity.RosterChange{Type: entity.RosterUpdated, RosterID: stored.ID, Roster: cloneRoster(stored)})
	return nil
}

func (r *RosterRepository) FindOneByID(_ context.Context, ID bson.ObjectID) (*entity.Roster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rosters[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRoster(stored), nil
}

func (r *RosterRepository) FindAll(_ context.Context) ([]*entity.Roster, error) {
	return r.filter(func(*entity.Roster) bool { return true }), nil
}

func (r *RosterRepository) FindManyFromDate(_ context.Context, from string) ([]*entity.Roster, error) {
	return r.filter(func(roster *entity.Roster) bool { return roster.ServiceDate >= from }), nil
}

func (r *RosterRepository) FindManyByServiceDate(_ context.Context, serviceDate string) ([]*entity.Roster, error) {
	return r.filter(func(roster *entity.Roster) bool { return roster.ServiceDate == serviceDate }), nil
}

func (r *RosterRepository) FindManyWithPendingBatches(_ context.Context, limit int) ([]*entity.Roster, error) {
	rosters := r.filter(func(roster *entity.Roster) bool { return len(roster.PendingBatches) > 0 })
	if limit > 0 && len(rosters) > limit {
		rosters = rosters[:limit]
	}
	return rosters, nil
}

// filter returns copies ordered by service date, then id.
func (r *RosterRepository) filter(keep func(*entity.Roster) bool) []*entity.Roster {
	r.mu.Lock()
	defer r.mu.Unlock()

	rosters := []*entity.Roster{}
	for _, roster := range r.rosters {
		if keep(roster) {
			rosters = append(rosters, cloneRoster(roster))
		}
	}
	sort.Slice(rosters, func(i, j int) bool {
		if rosters[i].ServiceDate != rosters[j].ServiceDate {
			return rosters[i].ServiceDate < rosters[j].ServiceDate
		}
		return rosters[i].ID.Hex() < rosters[j].ID.Hex()
	})
	return rosters
}

func (r *RosterRepository) AddConfirmation(_ context.Context, ID bson.ObjectID, memberID string) error {
	return r.mutate(ID, func(roster *entity.Roster) {
		if !slices.Contains(roster.ConfirmedMembers, memberID) {
			roster.ConfirmedMembers = append(roster.ConfirmedMembers, memberID)
		}
	})
}

func (r *RosterRepository) RemoveConfirmation(_ context.Context, ID bson.ObjectID, memberID string) error {
	return r.mutate(ID, func(roster *entity.Roster) {
		roster.ConfirmedMembers = slices.DeleteFunc(roster.ConfirmedMembers, func(id string) bool {
			return id == memberID
		})
	})
}

func (r *RosterRepository) UpdatePendingBatch(_ context.Context, ID bson.ObjectID, batchID string, remaining []entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster, ok := r.rosters[ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, batch := range roster.PendingBatches {
		if batch.ID == batchID {
			batch.Notifications = slices.Clone(remaining)
			batch.Attempts++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *RosterRepository) PullPendingBatch(_ context.Context, ID bson.ObjectID, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster, ok := r.rosters[ID]
	if !ok {
		return repository.ErrNotFound
	}
	roster.PendingBatches = slices.DeleteFunc(roster.PendingBatches, func(b *entity.NotificationBatch) bool {
		return b.ID == batchID
	})
	return nil
}

func (r *RosterRepository) mutate(ID bson.ObjectID, fn func(*entity.Roster)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster, ok := r.rosters[ID]
	if !ok {
		return repository.ErrNotFound
	}
	fn(roster)
	r.publish(entity.RosterChange{Type: entity.RosterUpdated, RosterID: ID, Roster: cloneRoster(roster)})
	return nil
}

func (r *RosterRepository) DeleteOneByID(_ context.Context, ID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rosters[ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rosters, ID)
	r.publish(entity.RosterChange{Type: entity.RosterDeleted, RosterID: ID})
	return nil
}

// Watch delivers changes made after the call until ctx is done. Slow
// subscribers miss changes rather than block writers.
func (r *RosterRepository) Watch(ctx context.Context) (<-chan entity.RosterChange, error) {
	changes := make(chan entity.RosterChange, 16)

	r.mu.Lock()
	r.subscribers[changes] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subscribers, changes)
		close(changes)
		r.mu.Unlock()
	}()

	return changes, nil
}

// publish must be called with r.mu held.
func (r *RosterRepository) publish(change entity.RosterChange) {
	for sub := range r.subscribers {
		select {
		case sub <- change:
		default:
		}
	}
}

func cloneRoster(roster *entity.Roster) *entity.Roster {
	c := *roster
	if roster.Leadership != nil {
		c.Leadership = make(map[entity.LeadershipRole]entity.MemberRef, len(roster.Leadership))
		for k, v := range roster.Leadership {
			c.Leadership[k] = v
		}
	}
	c.SupportTeam = slices.Clone(roster.SupportTeam)
	c.GreetingTeam = slices.Clone(roster.GreetingTeam)
	c.SpecialAppearances = slices.Clone(roster.SpecialAppearances)
	c.ConfirmedMembers = slices.Clone(roster.ConfirmedMembers)
	c.AssignedAddresses = slices.Clone(roster.AssignedAddresses)
	c.PendingBatches = nil
	for _, b := range roster.PendingBatches {
		c.PendingBatches = append(c.PendingBatches, cloneBatch(b))
	}
	return &c
}

func cloneBatch(batch *entity.NotificationBatch) *entity.NotificationBatch {
	c := *batch
	c.Notifications = slices.Clone(batch.Notifications)
	return &c
}
