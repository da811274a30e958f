package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cataur/talent-auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang-jwt/jwt/v5"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) { log.Printf("[DBG] "+format, args...) }
func (stdLogger) Info(format string, args ...any)  { log.Printf("[INF] "+format, args...) }
func (stdLogger) Warn(format string, args ...any)  { log.Printf("[WRN] "+format, args...) }
func (stdLogger) Error(format string, args ...any) { log.Printf("[ERR] "+format, args...) }

func main() {
	logger := stdLogger{}
	cfg := loadConfig()

	if cfg.GetSigningKey() == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := openDatabase(cfg.dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := auth.CreateSchema(ctx, db); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	provider := auth.NewUserProvider(repo.Users())

	auther := auth.NewAuthenticator(provider, cfg).WithLogger(logger)

	// Sessions signed with the previous key stay valid through a rotation.
	if prev := cfg.previousSigningKey; prev != "" {
		previous := auth.NewTokenService(
			[]byte(prev),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			jwt.ClaimStrings(cfg.GetAudience()),
			logger,
		)
		auther.WithTokenValidator(auth.NewMultiTokenValidator(auther.TokenService(), previous))
	}

	httpAuth, err := auth.NewHTTPAuthenticator(auther, cfg)
	if err != nil {
		log.Fatalf("http authenticator: %v", err)
	}

	var notifier auth.Notifier
	if cfg.smtp.Host != "" {
		mailer, err := auth.NewMailer(cfg.smtp, logger)
		if err != nil {
			log.Fatalf("mailer: %v", err)
		}
		notifier = mailer
	} else {
		logger.Warn("SMTP_HOST not set, lifecycle email disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      "talent-auth",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.clientOrigins,
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth.RegisterAuthRoutes(app,
		auth.WithControllerLogger(logger),
		auth.WithRepositoryManager(repo),
		auth.WithRouteAuthenticator(httpAuth),
		auth.WithNotifier(notifier),
		auth.WithClientBaseURL(cfg.clientBaseURL),
		auth.WithSandbox(cfg.sandbox),
	)

	go func() {
		if err := app.Listen(cfg.httpAddr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	logger.Info("listening on %s", cfg.httpAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown: %v", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
