package memory

import (
	"context"
	"testing"
	"time"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newRoster(serviceDate string, support ...string) *entity.Roster {
	r := &entity.Roster{ServiceDate: serviceDate, Label: entity.DefaultLabel}
	for _, id := range support {
		r.SupportTeam = append(r.SupportTeam, entity.MemberRef{ID: id, Name: id})
	}
	r.AssignedAddresses = r.RecipientAddresses()
	return r
}

func TestRosterRepository_QueriesAreOrderedCopies(t *testing.T) {
	repo := NewRosterRepository()
	ctx := context.Background()

	late := newRoster("2025-06-08", "bea")
	early := newRoster("2025-06-01", "cory")
	require.NoError(t, repo.Insert(ctx, late))
	require.NoError(t, repo.Insert(ctx, early))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID)

	all[0].SupportTeam[0].Name = "changed"
	stored, err := repo.FindOneByID(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "cory", stored.SupportTeam[0].Name)

	from, err := repo.FindManyFromDate(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, late.ID, from[0].ID)

	none, err := repo.FindManyByServiceDate(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.ErrorIs(t, repo.Insert(ctx, late), repository.ErrDuplicate)
}

func TestRosterRepository_EditKeepsConfirmations(t *testing.T) {
	repo := NewRosterRepository()
	ctx := context.Background()

	roster := newRoster("2025-06-01", "bea", "cory")
	require.NoError(t, repo.Insert(ctx, roster))
	require.NoError(t, repo.AddConfirmation(ctx, roster.ID, "bea"))
	require.NoError(t, repo.AddConfirmation(ctx, roster.ID, "bea"))

	edited := newRoster("2025-06-01", "bea")
	edited.ID = roster.ID
	edited.UpdatedAt = time.Now()
	require.NoError(t, repo.ReplaceAssignments(ctx, edited, &entity.NotificationBatch{ID: "b1"}))

	stored, err := repo.FindOneByID(ctx, roster.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bea"}, stored.ConfirmedMembers)
	assert.Equal(t, []string{"bea"}, stored.AssignedAddresses)
	require.Len(t, stored.PendingBatches, 1)

	require.NoError(t, repo.RemoveConfirmation(ctx, roster.ID, "bea"))
	stored, err = repo.FindOneByID(ctx, roster.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ConfirmedMembers)

	missing := bson.NewObjectID()
	edited.ID = missing
	assert.ErrorIs(t, repo.ReplaceAssignments(ctx, edited, nil), repository.ErrNotFound)
	assert.ErrorIs(t, repo.AddConfirmation(ctx, missing, "bea"), repository.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteOneByID(ctx, missing), repository.ErrNotFound)
}

func TestRosterRepository_PendingBatches(t *testing.T) {
	repo := NewRosterRepository()
	ctx := context.Background()

	roster := newRoster("2025-06-01", "bea")
	roster.PendingBatches = []*entity.NotificationBatch{{
		ID:            "b1",
		Notifications: []entity.Notification{{Recipient: "bea"}, {Recipient: "cory"}},
	}}
	require.NoError(t, repo.Insert(ctx, roster))
	require.NoError(t, repo.Insert(ctx, newRoster("2025-06-08", "cory")))

	pending, err := repo.FindManyWithPendingBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.UpdatePendingBatch(ctx, roster.ID, "b1", []entity.Notification{{Recipient: "cory"}}))
	stored, err := repo.FindOneByID(ctx, roster.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.PendingBatches[0].Attempts)
	assert.Len(t, stored.PendingBatches[0].Notifications, 1)

	assert.ErrorIs(t, repo.UpdatePendingBatch(ctx, roster.ID, "b2", nil), repository.ErrNotFound)

	require.NoError(t, repo.PullPendingBatch(ctx, roster.ID, "b1"))
	pending, err = repo.FindManyWithPendingBatches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRosterRepository_Watch(t *testing.T) {
	repo := NewRosterRepository()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := repo.Watch(ctx)
	require.NoError(t, err)

	roster := newRoster("2025-06-01", "bea")
	require.NoError(t, repo.Insert(context.Background(), roster))
	require.NoError(t, repo.AddConfirmation(context.Background(), roster.ID, "bea"))
	require.NoError(t, repo.DeleteOneByID(context.Background(), roster.ID))

	var types []entity.RosterChangeType
	for i := 0; i < 3; i++ {
		change := <-changes
		types = append(types, change.Type)
		if change.Type == entity.RosterDeleted {
			assert.Nil(t, change.Roster)
			assert.Equal(t, roster.ID, change.RosterID)
		}
	}
	assert.Equal(t, []entity.RosterChangeType{entity.RosterInserted, entity.RosterUpdated, entity.RosterDeleted}, types)

	cancel()
	_, open := <-changes
	assert.False(t, open)
}
