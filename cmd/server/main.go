package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"rbeam/internal/api/routes"
	"rbeam/internal/cache"
	"rbeam/internal/captcha"
	"rbeam/internal/config"
	"rbeam/internal/core/bans"
	"rbeam/internal/core/follows"
	"rbeam/internal/core/groups"
	"rbeam/internal/core/labels"
	"rbeam/internal/core/mail"
	"rbeam/internal/core/market"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/core/relationships"
	"rbeam/internal/core/remote"
	"rbeam/internal/core/staff"
	"rbeam/internal/db"
	"rbeam/internal/db/sqldb"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if err := db.Migrate(database, cfg.Database.Type); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	log.Println("Connected to database, migrations applied")

	ctx := context.Background()
	store, err := cache.NewRedis(ctx, cfg.CacheAddr, cfg.CachePass, cfg.CacheDB)
	if err != nil {
		log.Fatal("Failed to connect to cache:", err)
	}

	// Repositories
	profileRepo := sqldb.NewProfileRepository(database)
	groupRepo := sqldb.NewGroupRepository(database)
	followRepo := sqldb.NewFollowRepository(database)
	relationshipRepo := sqldb.NewRelationshipRepository(database)
	notificationRepo := sqldb.NewNotificationRepository(database)
	banRepo := sqldb.NewBanRepository(database)
	mailRepo := sqldb.NewMailRepository(database)
	labelRepo := sqldb.NewLabelRepository(database)
	marketRepo := sqldb.NewMarketRepository(database)

	// Services, wired leaf-first
	groupService := groups.NewService(groupRepo, store)
	notificationService := notifications.NewService(notificationRepo, store, groupService)
	banService := bans.NewService(banRepo, store, groupService, notificationService)
	followService := follows.NewService(followRepo, store, notificationService)
	relationshipService := relationships.NewService(relationshipRepo, store, followService, notificationService)

	federation := remote.NewClient(cfg.CitrusID, cfg.Secure, cfg.BlockedHosts)
	verifier := captcha.NewVerifier(cfg.Captcha.Secret)

	profileService := profiles.NewService(profileRepo, store, groupService, verifier, banService, federation, profiles.Options{
		RegistrationEnabled: cfg.RegistrationEnabled,
		CitrusID:            cfg.CitrusID,
		MediaDir:            cfg.MediaDir,
	})

	staffChecker := staff.NewChecker(groupService)
	mailService := mail.NewService(mailRepo, store, notificationService, profileService, relationshipService, staffChecker, federation, cfg.CitrusID)
	marketService := market.NewService(marketRepo, store, profileService, staffChecker, notificationService)
	labelService := labels.NewService(labelRepo, store, staffChecker, profileService)

	router := routes.New(routes.Deps{
		Config:        cfg,
		Profiles:      profileService,
		Follows:       followService,
		Relationships: relationshipService,
		Notifications: notificationService,
		Bans:          banService,
		Mail:          mailService,
		Market:        marketService,
		Labels:        labelService,
	})

	log.Printf("rbeam core starting on port %s (citrus id %q)", cfg.Port, cfg.CitrusID)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
