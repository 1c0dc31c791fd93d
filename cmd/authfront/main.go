package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/helsa/authfront/internal/config"
	"github.com/helsa/authfront/internal/idp"
	"github.com/helsa/authfront/internal/log"
	"github.com/helsa/authfront/internal/ratelimit"
	"github.com/helsa/authfront/internal/server"
)

var BuildVersion = "dev"

func main() {
	conf := flag.String("config", "", "path to optional YAML config file")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	// Development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	var store ratelimit.Store
	if cfg.ValkeyAddr != "" {
		valkeyStore, err := ratelimit.NewValkeyStore(cfg.ValkeyAddr)
		if err != nil {
			log.LogError("Failed to connect to rate-limit store: %v", err)
			os.Exit(1)
		}
		defer valkeyStore.Close()
		store = valkeyStore
	} else {
		log.LogWarnWithFields("main", "No rate-limit store configured, limiter is inert", nil)
	}

	provider := idp.NewGoogleProvider(idp.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: string(cfg.GoogleClientSecret),
		RedirectURI:  cfg.RedirectURI(),
	})

	handlers := server.NewAuthHandlers(cfg, provider, ratelimit.New(store))
	httpServer := server.NewHTTPServer(server.NewRouter(cfg, handlers), cfg.Addr)

	log.LogInfoWithFields("main", "Starting authfront", map[string]any{
		"version":    BuildVersion,
		"addr":       cfg.Addr,
		"baseURL":    cfg.BaseURL,
		"production": cfg.Production,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogError("Server exited with error: %v", err)
		os.Exit(1)
	}
}
