package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/joeyave/scala-roster/repository/memory"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	manager   = Actor{ID: "pastor@church.org", Role: "pastor"}
	volunteer = Actor{ID: "bea", Role: "member"}
)

type fixture struct {
	config   *helpers.Config
	rosters  *memory.RosterRepository
	members  *memory.MemberRepository
	outbox   *memory.NotificationRepository
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	notificationService *NotificationService
	publicationService  *PublicationService
	confirmationService *ConfirmationService
	rosterService       *RosterService
}

func testConfig(mods ...func(*helpers.Config)) *helpers.Config {
	cfg := helpers.DefaultConfig()
	cfg.Storage = helpers.StorageMemory
	cfg.BaseURL = "https://roster.church.org"
	for _, mod := range mods {
		mod(cfg)
	}
	return cfg
}

func testMembers() *memory.MemberRepository {
	return memory.NewMemberRepository(
		entity.Member{ID: "alex", Name: "Alex"},
		entity.Member{ID: "bea", Name: "Bea"},
		entity.Member{ID: "cory", Name: "Cory"},
		entity.Member{ID: "dana", Name: "Dana"},
		entity.Member{ID: "eli", Name: "Eli"},
		entity.Member{ID: "fay", Name: "Fay"},
	)
}

func newFixture(t *testing.T, mods ...func(*helpers.Config)) *fixture {
	t.Helper()

	f := &fixture{
		config:   testConfig(mods...),
		rosters:  memory.NewRosterRepository(),
		members:  testMembers(),
		outbox:   memory.NewNotificationRepository(),
		registry: prometheus.NewRegistry(),
	}
	f.metrics = metrics.New(f.registry)
	f.wire(f.rosters, f.outbox)
	return f
}

// wire builds the services on top of the given store and outbox.
func (f *fixture) wire(rosterStore RosterStore, outbox NotificationOutbox) {
	canManage := NewCapabilityTable(f.config.ManagerRoles)
	f.notificationService = NewNotificationService(outbox, nil, f.metrics, f.config.FanOutLimit)
	f.publicationService = NewPublicationService(rosterStore, NewAssembler(f.members, f.config.RejectUnresolved), f.notificationService, canManage, f.config, f.metrics)
	f.confirmationService = NewConfirmationService(rosterStore, f.notificationService, f.config, f.metrics)
	f.rosterService = NewRosterService(rosterStore, canManage, f.metrics)
}

func (f *fixture) publish(t *testing.T, input RosterInput) *entity.Roster {
	t.Helper()
	res, err := f.publicationService.Publish(context.Background(), manager, input, PublishOptions{})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return res.Roster
}

func scenarioInput() RosterInput {
	return RosterInput{
		ServiceDate: "2025-06-01",
		Leadership:  map[entity.LeadershipRole]string{entity.Conductor: "alex"},
		SupportTeam: []string{"bea", "cory"},
	}
}

func recipients(notifications []entity.Notification) []string {
	var out []string
	for _, n := range notifications {
		out = append(out, n.Recipient)
	}
	return out
}

func countCategory(notifications []entity.Notification, category entity.NotificationCategory) int {
	count := 0
	for _, n := range notifications {
		if n.Category == category {
			count++
		}
	}
	return count
}

var errStoreDown = errors.New("store unavailable")

type failingInsertStore struct {
	*memory.RosterRepository
}

func (failingInsertStore) Insert(context.Context, *entity.Roster) error {
	return errStoreDown
}

// flakyOutbox fails appends for a recipient a set number of times.
type flakyOutbox struct {
	*memory.NotificationRepository

	mu       sync.Mutex
	failures map[string]int
}

func newFlakyOutbox(failures map[string]int) *flakyOutbox {
	return &flakyOutbox{
		NotificationRepository: memory.NewNotificationRepository(),
		failures:               failures,
	}
}

func (o *flakyOutbox) AppendNotification(ctx context.Context, notification entity.Notification) error {
	o.mu.Lock()
	left := o.failures[notification.Recipient]
	if left > 0 {
		o.failures[notification.Recipient] = left - 1
		o.mu.Unlock()
		return errStoreDown
	}
	o.mu.Unlock()

	return o.NotificationRepository.AppendNotification(ctx, notification)
}
