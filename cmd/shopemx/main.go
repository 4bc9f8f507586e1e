package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"shopemx/internal/app"
	"shopemx/internal/config"
	"shopemx/internal/db"
	"shopemx/internal/models"
	"shopemx/internal/repositories"
	"shopemx/internal/services"
	"shopemx/internal/utils"
)

// @title       ShopEMX API
// @version     1.0
// @description Площадка передачи прав на произведения: 2FA, KYC, сделки и договоры.
// @BasePath    /

func main() {
	cliApp := &cli.App{
		Name:  "shopemx",
		Usage: "ShopEMX marketplace backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   config.DefaultPath,
				Usage:   "path to YAML config",
				EnvVars: []string{"SHOPEMX_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run HTTP server (applies migrations first)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply embedded database migrations",
				Action: migrate,
			},
			{
				Name:  "create-user",
				Usage: "create a user, e.g. the first admin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "phone", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.StringFlag{Name: "middle-name"},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.BoolFlag{Name: "admin", Usage: "grant ADMIN role"},
				},
				Action: createUser,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cCtx *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cCtx.String("config"))
	if err != nil {
		return nil, nil, err
	}
	var log *zap.Logger
	if cfg.Log.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func serve(cCtx *cli.Context) error {
	cfg, log, err := setup(cCtx)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("init failed", zap.Error(err))
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func migrate(cCtx *cli.Context) error {
	cfg, log, err := setup(cCtx)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	conn, err := db.Open(cCtx.Context, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	return db.Migrate(cCtx.Context, conn, log)
}

func createUser(cCtx *cli.Context) error {
	cfg, log, err := setup(cCtx)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	phone := cCtx.String("phone")
	if !utils.ValidPhone(phone) {
		return fmt.Errorf("invalid phone %q", phone)
	}
	auth := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	hash, err := auth.HashPassword(cCtx.String("password"))
	if err != nil {
		return err
	}
	role := models.RoleUser
	if cCtx.Bool("admin") {
		role = models.RoleAdmin
	}
	u := &models.User{
		Phone:        utils.NormalizePhone(phone),
		Email:        cCtx.String("email"),
		FirstName:    cCtx.String("first-name"),
		LastName:     cCtx.String("last-name"),
		MiddleName:   cCtx.String("middle-name"),
		PasswordHash: hash,
		Role:         role,
	}
	if err := repositories.NewUserRepository(conn).Create(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	log.Info("user created", zap.Int64("id", u.ID), zap.String("role", string(role)))
	return nil
}
