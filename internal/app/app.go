package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/config"
	"github.com/alpacapps/spaces/internal/crypto"
	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/imaging"
	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/middleware"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/risk"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/storage"
	"github.com/alpacapps/spaces/internal/timefmt"
	"github.com/alpacapps/spaces/internal/ui"
	"github.com/alpacapps/spaces/internal/voice"
)

// Sign-in attempts allowed per client IP per window.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type App struct {
	Cfg                   *config.Config
	DB                    *sqlx.DB
	Storage               storage.Storage
	Views                 *ui.Views
	AuthLimiter           *middleware.RateLimiter
	AuthService           *service.AuthService
	UserService           *service.UserService
	EmailService          *service.EmailService
	VaultService          *service.VaultService
	MediaService          *service.MediaService
	ImageryService        *service.ImageryService
	VoiceService          *service.VoiceService
	FeatureRequestService *service.FeatureRequestService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a, err := build(ctx, cfg, database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, database *sqlx.DB) (*App, error) {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	invitationRepository := repository.NewInvitationRepository(database)
	vaultRepository := repository.NewVaultRepository(database)
	spaceRepository := repository.NewSpaceRepository(database)
	mediaRepository := repository.NewMediaRepository(database)
	tagRepository := repository.NewTagRepository(database)
	assistantRepository := repository.NewAssistantRepository(database)
	callRepository := repository.NewCallRepository(database)
	requestRepository := repository.NewFeatureRequestRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cipher, err := crypto.NewVaultCipher(cfg.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault cipher: %w", err)
	}

	md := markdown.New()
	views, err := ui.NewViews(timefmt.New(cfg.Location()), md)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenMagicLinkExpiry,
	)
	userService := service.NewUserService(userRepository, invitationRepository, authService, emailService, cfg.InvitationExpiry)
	vaultService := service.NewVaultService(vaultRepository, spaceRepository, cipher)
	mediaService := service.NewMediaService(mediaRepository, tagRepository, spaceRepository, fileStorage, imaging.Options{
		MaxDimension: cfg.MediaMaxDimension,
		JPEGQuality:  cfg.MediaJPEGQuality,
	})
	imageryService := service.NewImageryService(mediaService, fileStorage)
	voiceService := service.NewVoiceService(
		assistantRepository,
		callRepository,
		voice.NewClient(cfg.VoiceAPIURL, cfg.VoiceAPIKey),
		md,
		cfg.VoiceWebhookSecret,
	)
	requestService := service.NewFeatureRequestService(
		requestRepository,
		fileStorage,
		risk.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel),
		cfg.AppDevAutoAssess,
		cfg.AppDevPollActive,
		cfg.AppDevPollIdle,
	)

	return &App{
		Cfg:                   cfg,
		DB:                    database,
		Storage:               fileStorage,
		Views:                 views,
		AuthLimiter:           middleware.NewRateLimiter(authRateLimit, authRateWindow),
		AuthService:           authService,
		UserService:           userService,
		EmailService:          emailService,
		VaultService:          vaultService,
		MediaService:          mediaService,
		ImageryService:        imageryService,
		VoiceService:          voiceService,
		FeatureRequestService: requestService,
	}, nil
}

func (a *App) Close() error {
	if a.AuthLimiter != nil {
		a.AuthLimiter.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
