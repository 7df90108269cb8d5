package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ignite/campaign-engine/internal/api"
	"github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/notify"
	"github.com/ignite/campaign-engine/internal/pkg/distlock"
	"github.com/ignite/campaign-engine/internal/store"
	"github.com/ignite/campaign-engine/internal/store/postgres"
	"github.com/ignite/campaign-engine/internal/webhook"
	"github.com/ignite/campaign-engine/internal/workflow"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process doesn't silently shadow the server.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Postgres persistence.
	var st store.Store = store.Nop{}
	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		st = postgres.New(db)
		log.Println("[server] Postgres persistence enabled")
	} else {
		log.Println("[server] no DATABASE_URL, running in-memory only")
	}

	// Optional Redis for the event bus and scheduler lock.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis unreachable: %v", err)
		}
		defer redisClient.Close()
	}

	// Event bus backend selection.
	var bus events.Bus
	var sqsBus *events.SQSBus
	switch cfg.Events.Backend {
	case "redis":
		if redisClient == nil {
			log.Fatal("events backend 'redis' requires redis.addr")
		}
		rb := events.NewRedisBus(redisClient, cfg.Events.ChannelPrefix)
		defer rb.Close()
		bus = rb
	case "sqs":
		if cfg.Events.SQSQueueURL == "" {
			log.Fatal("events backend 'sqs' requires sqs_queue_url")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Events.AWSRegion))
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		sqsBus = events.NewSQSBus(sqs.NewFromConfig(awsCfg), cfg.Events.SQSQueueURL)
		bus = sqsBus
	default:
		bus = events.NewMemoryBus()
	}
	log.Printf("[server] event bus backend: %s", cfg.Events.Backend)

	// Scheduler lock so only one replica runs schedule rules.
	var schedLock distlock.DistLock
	if cfg.Automation.SchedulerLock && (redisClient != nil || db != nil) {
		schedLock = distlock.NewLock(redisClient, db, "workflow-scheduler", 2*time.Minute)
	}

	engine, err := workflow.New(workflow.Options{
		Bus:           bus,
		Store:         st,
		Webhooks:      webhook.NewHTTPCaller(cfg.Webhooks.MaxRetries, time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
		Notifier:      notify.NewRenderer(),
		TickInterval:  time.Duration(cfg.Automation.TickIntervalSeconds) * time.Second,
		SchedulerLock: schedLock,
	})
	if err != nil {
		log.Fatalf("Failed to create workflow engine: %v", err)
	}

	// SQS subscriptions only receive once polling starts.
	if sqsBus != nil {
		sqsBus.Start(ctx)
	}

	engine.Start()
	defer engine.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewServer(engine).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("[server] listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("[server] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}

	if sqsBus != nil {
		sqsBus.Stop()
	}
	engine.Flush()
	log.Println("[server] stopped")
}
