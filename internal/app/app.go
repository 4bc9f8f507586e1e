package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "shopemx/docs"
	"shopemx/internal/config"
	"shopemx/internal/db"
	"shopemx/internal/handlers"
	"shopemx/internal/middleware"
	"shopemx/internal/pdf"
	"shopemx/internal/repositories"
	"shopemx/internal/routes"
	"shopemx/internal/services"
	"shopemx/internal/storage"
	"shopemx/internal/utils"
)

// App собирает базу, роутер и HTTP-сервер.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Router *gin.Engine

	log *zap.Logger
}

// NewStorage выбирает хранилище файлов по storage.driver.
func NewStorage(cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "s3":
		s3 := cfg.Storage.S3
		return storage.NewS3Storage(storage.S3Config{
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			PublicURL: s3.PublicURL,
		}, log)
	case "local", "":
		return storage.NewLocalStorage(cfg.Files.RootDir, cfg.Files.PublicURL, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.L()
	}

	// === DB ===
	conn, err := db.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, log); err != nil {
		conn.Close()
		return nil, err
	}

	store, err := NewStorage(cfg, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(conn)
	codeRepo := repositories.NewVerificationCodeRepository(conn)
	requestRepo := repositories.NewVerificationRequestRepository(conn)
	offerRepo := repositories.NewOfferRepository(conn)

	// === Collaborators ===
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
		cfg.Email.FromName,
		cfg.Email.DryRun,
		log,
	)
	smsClient := utils.NewSMSAeroClient(cfg.SMSAero.Email, cfg.SMSAero.APIKey, cfg.SMSAero.Sign, cfg.SMSAero.DryRun, log)
	notifier, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
	if err != nil {
		// уведомления необязательны, сервис работает без них
		log.Warn("[tg] disabled", zap.Error(err))
	}
	pdfGen := pdf.NewDocumentGenerator(cfg.PDF.FontPath)

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	verification := services.NewVerificationService(codeRepo, emailService, smsClient, services.VerificationOptions{
		CodeTTL:         cfg.Verification.CodeTTL,
		ResendCooldown:  cfg.Verification.ResendCooldown,
		MaxSendAttempts: cfg.Verification.MaxSendAttempts,
		CodeLength:      cfg.Verification.CodeLength,
	}, log)
	userService := services.NewUserService(userRepo, authService, verification, emailService, log)
	profileService := services.NewProfileService(userRepo, requestRepo, store, notifier, cfg.Files.MaxDocumentSize, log)
	adminService := services.NewAdminService(userRepo, requestRepo, profileService, log)
	offerService := services.NewOfferService(offerRepo, userRepo, store, pdfGen, smsClient, notifier, services.OfferOptions{
		PurchaseCodeTTL: cfg.Verification.PurchaseCodeTTL,
		City:            cfg.PDF.City,
	}, log)

	// === Handlers ===
	cookie := middleware.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure, TTL: cfg.Auth.SessionTTL}
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(userService, cookie, cfg.Server.AppURL),
		Verify:   handlers.NewVerifyHandler(userService),
		Profile:  handlers.NewProfileHandler(profileService),
		Document: handlers.NewDocumentHandler(profileService),
		Sell:     handlers.NewSellHandler(offerService, 0),
		Buy:      handlers.NewBuyHandler(offerService),
		Admin:    handlers.NewAdminHandler(adminService),
	}

	// === Gin ===
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.AppURL))

	// локальные файлы в старой раскладке (/files/uploads, /files/artworks, /files/contracts)
	if local, ok := store.(*storage.LocalStorage); ok && strings.HasPrefix(cfg.Files.PublicURL, "/") {
		router.Static(cfg.Files.PublicURL, local.Root())
	}

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, h, authService, cookie)

	return &App{Config: cfg, DB: conn, Router: router, log: log}, nil
}

// Run слушает порт до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Сервер запущен", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
