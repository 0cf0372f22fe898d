package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/joeyave/scala-roster/txt"
	"github.com/joeyave/scala-roster/util"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PublishOptions struct {
	// RosterID selects the roster to edit. Zero creates a new one.
	RosterID bson.ObjectID
	// NotifyUnchanged also notifies members whose assignment survived an edit
	// when notifications are diffed.
	NotifyUnchanged bool
}

type PublishResult struct {
	Roster         *entity.Roster `json:"roster"`
	Unresolved     []string       `json:"unresolved,omitempty"`
	RecipientCount int            `json:"recipientCount"`
	FailedCount    int            `json:"failedCount"`
	Queued         bool           `json:"queued"`
}

type PublicationService struct {
	rosterStore         RosterStore
	assembler           *Assembler
	notificationService *NotificationService
	canManage           CapabilityFunc
	config              *helpers.Config
	metrics             *metrics.Metrics
	now                 func() time.Time
}

func NewPublicationService(rosterStore RosterStore, assembler *Assembler, notificationService *NotificationService, canManage CapabilityFunc, config *helpers.Config, m *metrics.Metrics) *PublicationService {
	return &PublicationService{
		rosterStore:         rosterStore,
		assembler:           assembler,
		notificationService: notificationService,
		canManage:           canManage,
		config:              config,
		metrics:             m,
		now:                 time.Now,
	}
}

// Publish creates a roster, or replaces the assignments of an existing one,
// and notifies every assigned member plus management.
func (s *PublicationService) Publish(ctx context.Context, actor Actor, input RosterInput, opts PublishOptions) (*PublishResult, error) {
	if !s.canManage(actor.Role) {
		return nil, ErrForbidden
	}

	isEdit := !opts.RosterID.IsZero()

	var existing *entity.Roster
	if isEdit {
		var err error
		existing, err = s.rosterStore.FindOneByID(ctx, opts.RosterID)
		if err != nil {
			return nil, storeError(err)
		}
	}

	roster, report, err := s.assembler.Assemble(ctx, input, existing)
	if err != nil {
		return nil, err
	}

	err = s.checkServiceDate(ctx, roster)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !isEdit {
		roster.ID = bson.NewObjectID()
		roster.CreatedAt = now
	}
	roster.UpdatedAt = now

	batch := s.planBatch(existing, roster, opts.NotifyUnchanged)
	queued := s.config.DispatchMode == helpers.DispatchModeOutbox

	var pending *entity.NotificationBatch
	if queued {
		pending = batch
	}

	if isEdit {
		err = s.rosterStore.ReplaceAssignments(ctx, roster, pending)
	} else {
		if pending != nil {
			roster.PendingBatches = []*entity.NotificationBatch{pending}
		}
		err = s.rosterStore.Insert(ctx, roster)
	}
	if err != nil {
		log.Error().Err(err).Str("serviceDate", roster.ServiceDate).Msg("Error saving roster:")
		return nil, storeError(err)
	}
	roster.PendingBatches = nil

	action := "create"
	if isEdit {
		action = "edit"
	}
	s.metrics.IncPublished(action)
	log.Info().
		Str("rosterId", roster.ID.Hex()).
		Str("serviceDate", roster.ServiceDate).
		Str("actor", actor.ID).
		Str("action", action).
		Int("recipients", batch.RecipientCount).
		Strs("unresolved", report.Unresolved).
		Msg("Roster published")

	result := &PublishResult{
		Roster:         roster,
		Unresolved:     report.Unresolved,
		RecipientCount: batch.RecipientCount,
		Queued:         queued,
	}
	if !queued {
		// The roster is already stored: the fan-out must not be cut short by
		// the caller going away.
		result.FailedCount = s.notificationService.Dispatch(context.WithoutCancel(ctx), batch)
	}

	return result, nil
}

func (s *PublicationService) checkServiceDate(ctx context.Context, roster *entity.Roster) error {
	if !s.config.UniqueServiceDate {
		return nil
	}

	others, err := s.rosterStore.FindManyByServiceDate(ctx, roster.ServiceDate)
	if err != nil {
		return storeError(err)
	}
	for _, other := range others {
		if other.ID != roster.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateServiceDate, roster.ServiceDate)
		}
	}
	return nil
}

// planBatch builds the fan-out for a publication. existing is nil on create.
func (s *PublicationService) planBatch(existing, roster *entity.Roster, notifyUnchanged bool) *entity.NotificationBatch {
	lang := s.config.Lang

	titleKey := "title.newRoster"
	if existing != nil {
		titleKey = "title.rosterModified"
	}
	title := txt.Get(titleKey, lang)

	now := s.now().UTC()
	batch := &entity.NotificationBatch{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
	}

	link := s.config.RosterLink(roster.ID.Hex())
	memberNotification := func(recipient, title, body string) entity.Notification {
		return entity.Notification{
			Recipient: recipient,
			Title:     title,
			Body:      body,
			Link:      link,
			Category:  entity.NotificationRoster,
			CreatedAt: now,
		}
	}

	assigned := txt.Get("text.assigned", lang, roster.Label, roster.ServiceDate)
	addresses := roster.RecipientAddresses()

	if existing == nil || s.config.NotifyMode == helpers.NotifyModeFull {
		for _, address := range addresses {
			batch.Notifications = append(batch.Notifications, memberNotification(address, title, assigned))
		}
	} else {
		previous := existing.RecipientAddresses()
		previousSet := toSet(previous)
		currentSet := toSet(addresses)

		for _, address := range util.UniqueStrings(addresses) {
			if _, ok := previousSet[address]; ok && !notifyUnchanged {
				continue
			}
			batch.Notifications = append(batch.Notifications, memberNotification(address, title, assigned))
		}

		removedTitle := txt.Get("title.removedFromRoster", lang)
		unassigned := txt.Get("text.unassigned", lang, roster.Label, roster.ServiceDate)
		for _, address := range util.UniqueStrings(previous) {
			if _, ok := currentSet[address]; ok {
				continue
			}
			batch.Notifications = append(batch.Notifications, memberNotification(address, removedTitle, unassigned))
		}
	}
	batch.RecipientCount = len(batch.Notifications)

	batch.Notifications = append(batch.Notifications, entity.Notification{
		Recipient: s.config.ManagementRecipient,
		Title:     title,
		Body:      txt.Get("text.broadcast", lang, roster.Label, roster.LongDate(lang), roster.ServiceDate, len(addresses)),
		Link:      s.config.ManagementLink(roster.ID.Hex()),
		Category:  entity.NotificationAdmin,
		CreatedAt: now,
	})

	return batch
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
