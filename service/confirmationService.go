package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/joeyave/scala-roster/txt"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

// ConfirmationService lets assigned members confirm or decline.
type ConfirmationService struct {
	rosterStore         RosterStore
	notificationService *NotificationService
	config              *helpers.Config
	metrics             *metrics.Metrics
}

func NewConfirmationService(rosterStore RosterStore, notificationService *NotificationService, config *helpers.Config, m *metrics.Metrics) *ConfirmationService {
	return &ConfirmationService{
		rosterStore:         rosterStore,
		notificationService: notificationService,
		config:              config,
		metrics:             m,
	}
}

// Confirm marks memberID as confirmed. Confirming twice is a no-op.
func (s *ConfirmationService) Confirm(ctx context.Context, rosterID bson.ObjectID, memberID string) (*entity.Projection, error) {
	memberID = strings.TrimSpace(memberID)

	roster, err := s.authorize(ctx, rosterID, memberID)
	if err != nil {
		return nil, err
	}

	err = s.rosterStore.AddConfirmation(ctx, rosterID, memberID)
	if err != nil {
		log.Error().Err(err).Str("rosterId", rosterID.Hex()).Str("memberId", memberID).Msg("Error confirming assignment:")
		return nil, storeError(err)
	}

	if !roster.HasConfirmed(memberID) {
		roster.ConfirmedMembers = append(roster.ConfirmedMembers, memberID)
	}
	s.metrics.IncConfirmations()
	log.Info().Str("rosterId", rosterID.Hex()).Str("memberId", memberID).Msg("Assignment confirmed")

	projection := roster.Project(memberID)
	return &projection, nil
}

// Decline withdraws a confirmation and alerts management. Every decline
// alerts, even when the member had not confirmed.
func (s *ConfirmationService) Decline(ctx context.Context, rosterID bson.ObjectID, memberID string) (*entity.Projection, error) {
	memberID = strings.TrimSpace(memberID)

	roster, err := s.authorize(ctx, rosterID, memberID)
	if err != nil {
		return nil, err
	}

	err = s.rosterStore.RemoveConfirmation(ctx, rosterID, memberID)
	if err != nil {
		log.Error().Err(err).Str("rosterId", rosterID.Hex()).Str("memberId", memberID).Msg("Error declining assignment:")
		return nil, storeError(err)
	}

	roster.ConfirmedMembers = slices.DeleteFunc(roster.ConfirmedMembers, func(id string) bool {
		return id == memberID
	})
	s.metrics.IncDeclines()
	log.Info().Str("rosterId", rosterID.Hex()).Str("memberId", memberID).Msg("Assignment declined")

	// Logged by the notification service; the decline itself is already stored.
	_ = s.notificationService.Notify(context.WithoutCancel(ctx), s.escalation(roster, memberID))

	projection := roster.Project(memberID)
	return &projection, nil
}

func (s *ConfirmationService) authorize(ctx context.Context, rosterID bson.ObjectID, memberID string) (*entity.Roster, error) {
	if memberID == "" {
		return nil, ErrUnauthorized
	}

	roster, err := s.rosterStore.FindOneByID(ctx, rosterID)
	if err != nil {
		return nil, storeError(err)
	}

	if s.config.EnforceAssignment && !roster.IsAssigned(memberID) {
		return nil, ErrUnauthorized
	}
	return roster, nil
}

func (s *ConfirmationService) escalation(roster *entity.Roster, memberID string) entity.Notification {
	lang := s.config.Lang

	who := memberID
	if name := roster.MemberName(memberID); name != "" && name != memberID {
		who = fmt.Sprintf("%s (%s)", name, memberID)
	}

	return entity.Notification{
		Recipient: s.config.ManagementRecipient,
		Title:     txt.Get("title.assignmentDeclined", lang),
		Body:      txt.Get("text.declined", lang, who, roster.Label, roster.ServiceDate),
		Link:      s.config.ManagementLink(roster.ID.Hex()),
		Category:  entity.NotificationAlert,
	}
}
