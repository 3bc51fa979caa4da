package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evelansk/grouppassbot/internal/admin"
	"github.com/evelansk/grouppassbot/internal/config"
	"github.com/evelansk/grouppassbot/internal/database"
	"github.com/evelansk/grouppassbot/internal/groupaccess"
	"github.com/evelansk/grouppassbot/internal/repository"
	"github.com/evelansk/grouppassbot/internal/service"
	"github.com/evelansk/grouppassbot/internal/storage"
	"github.com/evelansk/grouppassbot/internal/sweeper"
	"github.com/evelansk/grouppassbot/internal/telegram"
	"github.com/evelansk/grouppassbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	planRepo := repository.NewPlanRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	manualRepo := repository.NewManualPaymentRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	sweepRepo := repository.NewSweepRepository(db)

	access := groupaccess.New(botAPI)

	var archiver service.ReceiptArchiver
	if cfg.ReceiptArchiveEnabled() {
		uploader, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		archiver = uploader
	} else {
		logr.Info("receipt archive disabled, s3 not configured")
	}

	userService := service.NewUserService(userRepo, subRepo)
	planService := service.NewPlanService(cfg, planRepo)
	promoService := service.NewPromoService(promoRepo)
	activationService := service.NewActivationService(subRepo, planRepo, groupRepo, access, logr, cfg.InviteTTL)
	paymentService := service.NewPaymentService(cfg, invoiceRepo, promoService, activationService, logr)
	manualService := service.NewManualPaymentService(manualRepo, promoService, activationService, archiver, access, logr)

	bot := telegram.NewBot(cfg, botAPI, logr, userService, planService, promoService, paymentService, manualService, methodRepo)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword,
		logr, userService, planService, promoService, manualService, groupRepo, methodRepo, botAPI)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	sweep := sweeper.New(subRepo, sweepRepo, paymentService, activationService, access, logr, loc, cfg.SweepInterval)
	go sweep.Run(ctx)

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
