package service

import (
	"context"
	"strings"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// RosterUpdate is one item of the per-viewer projection feed.
type RosterUpdate struct {
	RosterID    string             `json:"rosterId"`
	ServiceDate string             `json:"serviceDate,omitempty"`
	Deleted     bool               `json:"deleted"`
	Projection  *entity.Projection `json:"projection,omitempty"`
}

type RosterService struct {
	rosterStore RosterStore
	canManage   CapabilityFunc
	metrics     *metrics.Metrics
}

func NewRosterService(rosterStore RosterStore, canManage CapabilityFunc, m *metrics.Metrics) *RosterService {
	return &RosterService{
		rosterStore: rosterStore,
		canManage:   canManage,
		metrics:     m,
	}
}

func (s *RosterService) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Roster, error) {
	roster, err := s.rosterStore.FindOneByID(ctx, ID)
	if err != nil {
		return nil, storeError(err)
	}
	return roster, nil
}

// FindManyFromDate lists rosters on or after from. An empty from lists all.
func (s *RosterService) FindManyFromDate(ctx context.Context, from string) ([]*entity.Roster, error) {
	var (
		rosters []*entity.Roster
		err     error
	)

	from = strings.TrimSpace(from)
	if from == "" {
		rosters, err = s.rosterStore.FindAll(ctx)
	} else {
		from, err = helpers.ParseServiceDate(from)
		if err != nil {
			return nil, ErrInvalidServiceDate
		}
		rosters, err = s.rosterStore.FindManyFromDate(ctx, from)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return rosters, nil
}

func (s *RosterService) FindManyByServiceDate(ctx context.Context, serviceDate string) ([]*entity.Roster, error) {
	serviceDate, err := helpers.ParseServiceDate(strings.TrimSpace(serviceDate))
	if err != nil {
		return nil, ErrInvalidServiceDate
	}

	rosters, err := s.rosterStore.FindManyByServiceDate(ctx, serviceDate)
	if err != nil {
		return nil, storeError(err)
	}
	return rosters, nil
}

// ProjectByID loads a roster and renders it for viewerID.
func (s *RosterService) ProjectByID(ctx context.Context, ID bson.ObjectID, viewerID string) (*entity.Roster, *entity.Projection, error) {
	roster, err := s.FindOneByID(ctx, ID)
	if err != nil {
		return nil, nil, err
	}

	projection := roster.Project(strings.TrimSpace(viewerID))
	return roster, &projection, nil
}

// Retire deletes a roster. Members are not notified.
func (s *RosterService) Retire(ctx context.Context, actor Actor, ID bson.ObjectID) error {
	if !s.canManage(actor.Role) {
		return ErrForbidden
	}

	err := s.rosterStore.DeleteOneByID(ctx, ID)
	if err != nil {
		return storeError(err)
	}

	s.metrics.IncRetired()
	log.Info().Str("rosterId", ID.Hex()).Str("actor", actor.ID).Msg("Roster retired")
	return nil
}

// Subscribe streams a projection for viewerID every time a roster changes,
// until ctx is done.
func (s *RosterService) Subscribe(ctx context.Context, viewerID string) (<-chan RosterUpdate, error) {
	changes, err := s.rosterStore.Watch(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	viewerID = strings.TrimSpace(viewerID)
	updates := make(chan RosterUpdate)
	go func() {
		defer close(updates)

		for change := range changes {
			update := RosterUpdate{RosterID: change.RosterID.Hex()}
			switch {
			case change.Type == entity.RosterDeleted:
				update.Deleted = true
			case change.Roster == nil:
				continue
			default:
				projection := change.Roster.Project(viewerID)
				update.ServiceDate = change.Roster.ServiceDate
				update.Projection = &projection
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}
