package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VersatileFusion/sangshekkan/config"
	"github.com/VersatileFusion/sangshekkan/controllers/auth"
	otpController "github.com/VersatileFusion/sangshekkan/controllers/otp"
	smsController "github.com/VersatileFusion/sangshekkan/controllers/sms"
	userController "github.com/VersatileFusion/sangshekkan/controllers/user"
	"github.com/VersatileFusion/sangshekkan/database"
	"github.com/VersatileFusion/sangshekkan/database/seeders"
	"github.com/VersatileFusion/sangshekkan/httpServices/sms"
	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/routes"
	otpService "github.com/VersatileFusion/sangshekkan/services/otp"
	"github.com/VersatileFusion/sangshekkan/services/ratelimit"
	"github.com/VersatileFusion/sangshekkan/services/session"
	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	logFile, err := logger.Setup(cfg.LogDir)
	if err != nil {
		logger.Error("Failed to open log file, logging to stdout only", err)
	} else {
		defer logFile.Close()
	}
	if !cfg.IsProduction() {
		logger.SetLevel(log.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, 30*time.Second)
	store, err := database.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		os.Exit(1)
	}

	limiterStore, redisClient, err := newLimiterStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", err)
		os.Exit(1)
	}

	provider, err := sms.NewProvider(cfg)
	if err != nil {
		logger.Error("Invalid SMS configuration", err)
		os.Exit(1)
	}
	smsService := sms.NewSMSService(provider, sms.DefaultCatalogue(), sms.WithRetries(cfg.SMSRetries))
	logger.Info("SMS driver: " + provider.Name())

	issuer := session.NewIssuer(cfg.AuthSecret, cfg.IsProduction())
	if cfg.IsProduction() && cfg.AuthSecret == "" {
		logger.Warning("AUTH_SECRET is empty in production; logins will require a manual retry")
	}

	flow := otpService.NewOTPService(store.Users(), store.OTPs(), smsService, issuer, otpService.Settings{EchoCode: cfg.EchoOTP})
	if cfg.EchoOTP {
		logger.Warning("TEST_ECHO_OTP is enabled, codes are returned in API responses")
	}

	if _, err := seeders.SeedAdmin(ctx, store.Users(), seeders.AdminSeed{
		Phone:    cfg.AdminPhone,
		Name:     cfg.AdminName,
		Password: cfg.AdminPassword,
	}, time.Now().UTC()); err != nil {
		logger.Error("Admin seeding failed", err)
	}

	asyncLogger := logger.NewAsyncLogger(store.Logs())
	go asyncLogger.ProcessLog()

	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       1 * 1024 * 1024,
		ErrorHandler:    errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: cfg.FrontendURL != "*",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		OTP:      otpController.NewOTPController(flow),
		Auth:     auth.NewAuthController(issuer),
		Users:    userController.NewUserController(store.Users(), smsService, nil),
		SMS:      smsController.NewSMSController(smsService),
		Limiter:  ratelimit.New(limiterStore),
		Sessions: issuer,
		UserRepo: store.Users(),
		Audit:    asyncLogger,
	})

	go func() {
		logger.Success("Server is running on ip: " + cfg.AppHost + " port: " + cfg.AppPort)
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("Server stopped", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("HTTP shutdown failed", err)
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelClose()
	if err := asyncLogger.Close(closeCtx); err != nil {
		logger.Error("Audit log drain incomplete", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis", err)
		}
	}
	if err := store.Close(closeCtx); err != nil {
		logger.Error("Failed to close database", err)
	}
	logger.Success("Shutdown complete")
}

// newLimiterStore shares counters through Redis when REDIS_URL is set.
func newLimiterStore(ctx context.Context, cfg config.Config) (ratelimit.Store, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, rate limits are kept in process memory")
		return ratelimit.NewMemoryStore(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Success("Connected to redis at " + opts.Addr)
	return ratelimit.NewRedisStore(client, "ratelimit:"), client, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "خطای سرور"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("Unhandled error on "+c.Path(), err)
	}
	return c.Status(code).JSON(types.ErrorResponse{Error: message})
}
