package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	v1 "github.com/jason-czar/freedomains/api/v1"
	"github.com/jason-czar/freedomains/internal/auth"
	"github.com/jason-czar/freedomains/internal/billing"
	"github.com/jason-czar/freedomains/internal/cache"
	"github.com/jason-czar/freedomains/internal/config"
	"github.com/jason-czar/freedomains/internal/db"
	"github.com/jason-czar/freedomains/internal/events"
	"github.com/jason-czar/freedomains/internal/planner"
	"github.com/jason-czar/freedomains/internal/provider"
	"github.com/jason-czar/freedomains/internal/reconciler"
	"github.com/jason-czar/freedomains/internal/registration"
	"github.com/jason-czar/freedomains/internal/store"
	"github.com/jason-czar/freedomains/internal/verification"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	logger := logrus.NewEntry(logrus.StandardLogger())

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.GetDB()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
	}

	// 3. Initialize Redis
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	defer cache.Close()

	// 4. Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// 5. Wire the domain services
	gateway := provider.NewClient(provider.Config{
		BaseURL:      cfg.Provider.GatewayURL,
		APIToken:     cfg.Provider.APIToken,
		ParentDomain: cfg.Provider.ParentDomain,
		Timeout:      time.Duration(cfg.Provider.TimeoutSec) * time.Second,
	})

	registrations := store.New(db.GetDB())

	posture := provider.ZoneSettings{
		SSLMode:       "full",
		ForceHTTPS:    true,
		MinTLSVersion: "1.2",
		Brotli:        true,
	}
	rec := reconciler.New(gateway, registrations, posture, logger)

	eventServer := events.NewServer(logger)
	defer eventServer.Close()

	verifier := verification.NewService(gateway, registrations, eventServer, logger, verification.Options{
		MaxRetries: cfg.Verification.MaxRetries,
		RetryDelay: time.Duration(cfg.Verification.RetryDelaySec) * time.Second,
	})
	defer verifier.Stop()

	availability := cache.NewAvailabilityCache(gateway, cache.Client, logger)
	billingClient := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIToken,
		time.Duration(cfg.Billing.TimeoutSec)*time.Second)

	targets := planner.Targets{
		HostingIP:    cfg.Records.HostingIP,
		VerifyTarget: cfg.Records.VerifyTarget,
		MXPrimary:    cfg.Records.MXPrimary,
		MXSecondary:  cfg.Records.MXSecondary,
		SPFText:      cfg.Records.SPFText,
	}
	svc := registration.NewService(registrations, availability, rec, verifier, billingClient,
		targets, cfg.Provider.ParentDomain, logger)
	svc.SetNotifier(eventServer)
	svc.SetRecheckLimiter(cache.NewRecheckGuard(cache.Client, logger))

	// 6. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	v1.SetupRouter(r, db.GetDB(), cfg, svc, gateway)

	// Socket.IO endpoint for live domain status updates
	r.Any("/socket.io/*any", gin.WrapH(eventServer.Handler()))

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
