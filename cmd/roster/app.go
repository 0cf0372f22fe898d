package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/joeyave/scala-roster/repository"
	"github.com/joeyave/scala-roster/repository/memory"
	"github.com/joeyave/scala-roster/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"gopkg.in/yaml.v3"
)

type app struct {
	config   *helpers.Config
	registry *prometheus.Registry

	mongoClient      *mongo.Client
	rosterRepository *repository.RosterRepository

	rosterStore     service.RosterStore
	memberDirectory service.MemberDirectory

	notificationService *service.NotificationService
	publicationService  *service.PublicationService
	confirmationService *service.ConfirmationService
	rosterService       *service.RosterService
	memberService       *service.MemberService
	outboxWorker        *service.OutboxWorker
}

func newApp(ctx context.Context, cfg *helpers.Config) (*app, error) {
	a := &app{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var outbox service.NotificationOutbox
	switch cfg.Storage {
	case helpers.StorageMongo:
		mongoClient, err := connectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.mongoClient = mongoClient
		a.rosterRepository = repository.NewRosterRepository(mongoClient, cfg.MongoDatabase)
		a.rosterStore = a.rosterRepository
		a.memberDirectory = repository.NewMemberRepository(mongoClient, cfg.MongoDatabase)
		outbox = repository.NewNotificationRepository(mongoClient, cfg.MongoDatabase)
	case helpers.StorageMemory:
		members, err := loadMembers(membersFile)
		if err != nil {
			return nil, err
		}
		a.rosterStore = memory.NewRosterRepository()
		a.memberDirectory = memory.NewMemberRepository(members...)
		outbox = memory.NewNotificationRepository()
		log.Warn().Int("members", len(members)).Msg("Using in-memory storage, data is lost on exit")
	}

	var courier service.Courier = service.NopCourier{}
	if cfg.BotToken != "" {
		telegramCourier, err := service.NewTelegramCourier(cfg.BotToken, a.memberDirectory)
		if err != nil {
			a.close()
			return nil, err
		}
		courier = telegramCourier
	}

	canManage := service.NewCapabilityTable(cfg.ManagerRoles)
	a.notificationService = service.NewNotificationService(outbox, courier, m, cfg.FanOutLimit)
	a.publicationService = service.NewPublicationService(a.rosterStore, service.NewAssembler(a.memberDirectory, cfg.RejectUnresolved), a.notificationService, canManage, cfg, m)
	a.confirmationService = service.NewConfirmationService(a.rosterStore, a.notificationService, cfg, m)
	a.rosterService = service.NewRosterService(a.rosterStore, canManage, m)
	a.memberService = service.NewMemberService(a.memberDirectory)
	a.outboxWorker = service.NewOutboxWorker(a.rosterStore, a.notificationService, cfg, m)

	return a, nil
}

func (a *app) close() {
	if a.mongoClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.mongoClient.Disconnect(ctx)
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return mongoClient, nil
}

type memberSeed struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	TelegramID   int64  `yaml:"telegramId"`
	LanguageCode string `yaml:"languageCode"`
}

func loadMembers(path string) ([]entity.Member, error) {
	if path == "" {
		return nil, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading members file: %w", err)
	}

	var seeds []memberSeed
	if err := yaml.Unmarshal(buf, &seeds); err != nil {
		return nil, fmt.Errorf("error parsing members file: %w", err)
	}

	members := make([]entity.Member, 0, len(seeds))
	for _, s := range seeds {
		if s.ID == "" {
			return nil, errors.New("member without id in members file")
		}
		members = append(members, entity.Member{
			ID:           s.ID,
			Name:         s.Name,
			Role:         s.Role,
			TelegramID:   s.TelegramID,
			LanguageCode: s.LanguageCode,
		})
	}
	return members, nil
}
