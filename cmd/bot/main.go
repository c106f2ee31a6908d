package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/denbedilov/the-archivist/internal/club"
	"github.com/denbedilov/the-archivist/internal/config"
	"github.com/denbedilov/the-archivist/internal/database"
	"github.com/denbedilov/the-archivist/internal/members"
	"github.com/denbedilov/the-archivist/internal/ops"
	"github.com/denbedilov/the-archivist/internal/store"
	"github.com/denbedilov/the-archivist/internal/transport/telegram"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("bot.curator_id", "CURATOR_ID")
	viper.BindEnv("bot.invite_link", "CLUB_INVITE_LINK")
	viper.BindEnv("bot.purge_grace", "PURGE_GRACE")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("port", "PORT")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	cfg := config.LoadBotConfig()
	if cfg.Token == "" {
		log.Fatal("BOT_TOKEN is not set")
	}
	if cfg.CuratorID == 0 {
		log.Fatal("CURATOR_ID is not set")
	}

	// Initialize the ledger store
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	ledger := store.NewPostgresStore(db)

	// Member cache; the bot runs without it
	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}
	var directory club.Directory = club.EmptyDirectory{}
	var recorder *members.Directory
	if redisClient != nil {
		recorder = members.NewDirectory(redisClient)
		directory = recorder
	}

	// Transport
	bot, err := telegram.New(cfg.Token)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	// Core wiring
	roller, err := club.NewRoller()
	if err != nil {
		log.Fatalf("Failed to seed the die: %v", err)
	}
	policy := club.NewPolicy(cfg.CuratorID, ledger)
	executor := club.NewExecutor(ledger, policy, directory, bot, roller, club.ExecutorConfig{
		InviteLink: cfg.InviteLink,
		PurgeGrace: cfg.PurgeGrace,
	})
	bot.Attach(executor, recorder)

	// Ops server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      ops.NewRouter(db),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("[BOT] Ops server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ops server failed: %v", err)
		}
	}()

	go bot.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[BOT] Shutting down...")
	bot.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Ops server forced to shutdown: %v", err)
	}

	log.Println("[BOT] Stopped")
}
