package service

import (
	"context"
	"testing"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PublicationSuite struct {
	suite.Suite
	f   *fixture
	ctx context.Context
}

func TestPublicationSuite(t *testing.T) {
	suite.Run(t, new(PublicationSuite))
}

func (s *PublicationSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.ctx = context.Background()
}

func (s *PublicationSuite) TestCreateFansOutToEveryAssignment() {
	res, err := s.f.publicationService.Publish(s.ctx, manager, RosterInput{
		ServiceDate:  "2025-06-01",
		Label:        "Pentecost",
		Leadership:   map[entity.LeadershipRole]string{entity.Officiant: "alex"},
		SupportTeam:  []string{"bea", "cory"},
		GreetingTeam: []string{"dana"},
	}, PublishOptions{})
	s.Require().NoError(err)

	s.False(res.Roster.ID.IsZero())
	s.False(res.Queued)
	s.Equal(4, res.RecipientCount)
	s.Zero(res.FailedCount)

	notifications := s.f.outbox.Notifications()
	s.Len(notifications, 5)
	s.Equal(4, countCategory(notifications, entity.NotificationRoster))
	s.Equal(1, countCategory(notifications, entity.NotificationAdmin))
	s.ElementsMatch([]string{"alex", "bea", "cory", "dana", s.f.config.ManagementRecipient}, recipients(notifications))

	for _, n := range notifications {
		s.False(n.Read)
		s.False(n.CreatedAt.IsZero())
		if n.Category == entity.NotificationRoster {
			s.Equal("New Roster", n.Title)
			s.Contains(n.Body, "2025-06-01")
			s.Equal("https://roster.church.org/rosters/"+res.Roster.ID.Hex(), n.Link)
		} else {
			s.Equal("https://roster.church.org/admin/rosters/"+res.Roster.ID.Hex(), n.Link)
			s.Contains(n.Body, "Pentecost")
		}
	}

	logs := s.f.outbox.BatchLogs()
	s.Require().Len(logs, 1)
	s.Equal("New Roster", logs[0].Title)
	s.Equal(4, logs[0].RecipientCount)
	s.Equal(entity.BatchSuccess, logs[0].Status)

	stored, err := s.f.rosters.FindOneByID(s.ctx, res.Roster.ID)
	s.Require().NoError(err)
	s.Equal("Pentecost", stored.Label)
	s.Empty(stored.PendingBatches)

	s.Equal(float64(1), testutil.ToFloat64(s.f.metrics.RostersPublished.WithLabelValues("create")))
	s.Equal(float64(4), testutil.ToFloat64(s.f.metrics.NotificationsDelivered.WithLabelValues(string(entity.NotificationRoster))))
}

func (s *PublicationSuite) TestMemberInTwoCategoriesIsNotifiedTwice() {
	res, err := s.f.publicationService.Publish(s.ctx, manager, RosterInput{
		ServiceDate: "2025-06-01",
		Leadership:  map[entity.LeadershipRole]string{entity.Officiant: "alex"},
		SupportTeam: []string{"alex"},
	}, PublishOptions{})
	s.Require().NoError(err)

	s.Equal(2, res.RecipientCount)
	s.Len(s.f.outbox.FindManyByRecipient("alex"), 2)
}

func (s *PublicationSuite) TestEditResendsFullBatch() {
	roster := s.f.publish(s.T(), scenarioInput())

	res, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{RosterID: roster.ID})
	s.Require().NoError(err)
	s.Equal(roster.ID, res.Roster.ID)

	for _, id := range []string{"alex", "bea", "cory"} {
		received := s.f.outbox.FindManyByRecipient(id)
		s.Require().Len(received, 2, id)
		s.Equal("New Roster", received[0].Title)
		s.Equal("Roster Modified", received[1].Title)
	}
	s.Len(s.f.outbox.FindManyByRecipient(s.f.config.ManagementRecipient), 2)
	s.Len(s.f.outbox.BatchLogs(), 2)
	s.Equal(float64(1), testutil.ToFloat64(s.f.metrics.RostersPublished.WithLabelValues("edit")))
}

func (s *PublicationSuite) TestEditKeepsConfirmations() {
	roster := s.f.publish(s.T(), scenarioInput())
	_, err := s.f.confirmationService.Confirm(s.ctx, roster.ID, "bea")
	s.Require().NoError(err)

	input := scenarioInput()
	input.SupportTeam = []string{"bea", "dana"}
	res, err := s.f.publicationService.Publish(s.ctx, manager, input, PublishOptions{RosterID: roster.ID})
	s.Require().NoError(err)
	s.Equal([]string{"bea"}, res.Roster.ConfirmedMembers)

	stored, err := s.f.rosters.FindOneByID(s.ctx, roster.ID)
	s.Require().NoError(err)
	s.Equal([]string{"bea"}, stored.ConfirmedMembers)
	s.Equal([]entity.MemberRef{{ID: "bea", Name: "Bea"}, {ID: "dana", Name: "Dana"}}, stored.SupportTeam)
	s.Equal(roster.CreatedAt, stored.CreatedAt)
}

func (s *PublicationSuite) TestDiffModeNotifiesChangesOnly() {
	s.f = newFixture(s.T(), func(cfg *helpers.Config) { cfg.NotifyMode = helpers.NotifyModeDiff })
	roster := s.f.publish(s.T(), scenarioInput())

	input := scenarioInput()
	input.SupportTeam = []string{"bea", "dana"}
	res, err := s.f.publicationService.Publish(s.ctx, manager, input, PublishOptions{RosterID: roster.ID})
	s.Require().NoError(err)
	s.Equal(2, res.RecipientCount)

	s.Len(s.f.outbox.FindManyByRecipient("alex"), 1)
	s.Len(s.f.outbox.FindManyByRecipient("bea"), 1)

	dana := s.f.outbox.FindManyByRecipient("dana")
	s.Require().Len(dana, 1)
	s.Equal("Roster Modified", dana[0].Title)

	cory := s.f.outbox.FindManyByRecipient("cory")
	s.Require().Len(cory, 2)
	s.Equal("Removed From Roster", cory[1].Title)

	logs := s.f.outbox.BatchLogs()
	s.Require().Len(logs, 2)
	s.Equal(2, logs[1].RecipientCount)
}

func (s *PublicationSuite) TestDiffModeNotifyUnchanged() {
	s.f = newFixture(s.T(), func(cfg *helpers.Config) { cfg.NotifyMode = helpers.NotifyModeDiff })
	roster := s.f.publish(s.T(), scenarioInput())

	res, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{
		RosterID:        roster.ID,
		NotifyUnchanged: true,
	})
	s.Require().NoError(err)
	s.Equal(3, res.RecipientCount)
	for _, id := range []string{"alex", "bea", "cory"} {
		s.Len(s.f.outbox.FindManyByRecipient(id), 2, id)
	}

	res, err = s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{RosterID: roster.ID})
	s.Require().NoError(err)
	s.Zero(res.RecipientCount)
	s.Len(s.f.outbox.FindManyByRecipient(s.f.config.ManagementRecipient), 3)
}

func (s *PublicationSuite) TestForbiddenActor() {
	_, err := s.f.publicationService.Publish(s.ctx, volunteer, scenarioInput(), PublishOptions{})
	s.ErrorIs(err, ErrForbidden)
	s.Empty(s.f.outbox.Notifications())

	rosters, err := s.f.rosters.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(rosters)
}

func (s *PublicationSuite) TestEditUnknownRoster() {
	_, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{RosterID: bson.NewObjectID()})
	s.ErrorIs(err, ErrNotFound)
	s.Empty(s.f.outbox.Notifications())
}

func (s *PublicationSuite) TestValidationFailurePersistsNothing() {
	_, err := s.f.publicationService.Publish(s.ctx, manager, RosterInput{ServiceDate: "2025-06-01"}, PublishOptions{})
	s.ErrorIs(err, ErrEmptySubmission)

	rosters, err := s.f.rosters.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(rosters)
	s.Empty(s.f.outbox.Notifications())
	s.Empty(s.f.outbox.BatchLogs())
}

func (s *PublicationSuite) TestPersistenceFailureAbortsFanOut() {
	s.f.wire(failingInsertStore{s.f.rosters}, s.f.outbox)

	_, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{})
	s.ErrorIs(err, ErrPersistence)
	s.ErrorIs(err, errStoreDown)
	s.Empty(s.f.outbox.Notifications())
	s.Empty(s.f.outbox.BatchLogs())
}

func (s *PublicationSuite) TestDeliveryFailureIsBestEffort() {
	outbox := newFlakyOutbox(map[string]int{"bea": 1})
	s.f.wire(s.f.rosters, outbox)

	res, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{})
	s.Require().NoError(err)
	s.Equal(1, res.FailedCount)

	s.ElementsMatch([]string{"alex", "cory", s.f.config.ManagementRecipient}, recipients(outbox.Notifications()))

	logs := outbox.BatchLogs()
	s.Require().Len(logs, 1)
	s.Equal(entity.BatchFailure, logs[0].Status)
	s.Equal(3, logs[0].RecipientCount)
	s.Equal(float64(1), testutil.ToFloat64(s.f.metrics.NotificationsFailed.WithLabelValues(string(entity.NotificationRoster))))
}

func (s *PublicationSuite) TestUnresolvedMembersAreReported() {
	input := scenarioInput()
	input.GreetingTeam = []string{"ghost"}

	res, err := s.f.publicationService.Publish(s.ctx, manager, input, PublishOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"ghost"}, res.Unresolved)
	s.Empty(res.Roster.GreetingTeam)
	s.Empty(s.f.outbox.FindManyByRecipient("ghost"))
}

func (s *PublicationSuite) TestUniqueServiceDate() {
	s.f = newFixture(s.T(), func(cfg *helpers.Config) { cfg.UniqueServiceDate = true })
	roster := s.f.publish(s.T(), scenarioInput())

	_, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{})
	s.ErrorIs(err, ErrDuplicateServiceDate)

	// Editing the roster that owns the date is fine.
	_, err = s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{RosterID: roster.ID})
	s.NoError(err)
}

func (s *PublicationSuite) TestDuplicateServiceDateAllowedByDefault() {
	s.f.publish(s.T(), scenarioInput())
	s.f.publish(s.T(), scenarioInput())

	rosters, err := s.f.rosterService.FindManyByServiceDate(s.ctx, "2025-06-01")
	s.Require().NoError(err)
	s.Len(rosters, 2)
}

func (s *PublicationSuite) TestOutboxModeQueuesBatch() {
	s.f = newFixture(s.T(), func(cfg *helpers.Config) { cfg.DispatchMode = helpers.DispatchModeOutbox })

	res, err := s.f.publicationService.Publish(s.ctx, manager, scenarioInput(), PublishOptions{})
	s.Require().NoError(err)
	s.True(res.Queued)
	s.Equal(3, res.RecipientCount)
	s.Empty(s.f.outbox.Notifications())

	pending, err := s.f.rosters.FindManyWithPendingBatches(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Require().Len(pending[0].PendingBatches, 1)
	s.Len(pending[0].PendingBatches[0].Notifications, 4)
}
