package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamherald/streamherald-bot/internal/bot"
	"github.com/streamherald/streamherald-bot/internal/config"
	"github.com/streamherald/streamherald-bot/internal/database"
	"github.com/streamherald/streamherald-bot/internal/health"
	"github.com/streamherald/streamherald-bot/internal/retry"
	"github.com/streamherald/streamherald-bot/internal/twitch"
	"github.com/streamherald/streamherald-bot/internal/webhook"
)

const version = "v1.2.0"

func main() {
	config.Load()

	log.Printf("Welcome to streamherald, version: %s", version)

	err := database.Init(config.DatabaseType, config.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.Close()

	repo := database.NewRepository()

	twitchAggregator := health.NewAggregator(repo, "twitch_api")
	twitchAggregator.Start(30 * time.Second)
	defer twitchAggregator.Stop()

	twitchClient, err := twitch.NewClient(config.TwitchClientID, config.TwitchClientSecret, twitchAggregator)
	if err != nil {
		log.Fatalf("Error creating Twitch client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := twitchClient.Authenticate(ctx); err != nil {
		cancel()
		log.Fatalf("Error authenticating with Twitch: %v", err)
	}
	cancel()

	callbackURL := config.WebhookPublicURL + config.WebhookPath
	subs := twitch.NewSubscriptionManager(twitchClient, repo, callbackURL, config.WebhookSecret)

	discordBot, err := bot.New(repo, twitchClient, subs)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	server := webhook.NewServer(config.WebhookPort, config.WebhookPath, config.WebhookSecret, discordBot.Reconciler.HandleEvent)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Error running webhook server: %v", err)
		}
	}()

	if err := discordBot.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	// Bootstrap off the startup path: events only arrive once subscriptions
	// exist, and the webhook listener is already up to answer the
	// verification challenges.
	go func() {
		policy := retry.Policy{
			MaxAttempts:    5,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     time.Minute,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				log.Printf("Subscription bootstrap attempt %d failed, retrying in %s: %v", attempt, backoff, err)
			},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := retry.Do(ctx, policy, subs.Bootstrap); err != nil {
			log.Printf("Error bootstrapping subscriptions: %v", err)
		}
	}()

	// Wait for a SIGINT or SIGTERM signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down webhook server: %v", err)
	}
	discordBot.Stop()
}
