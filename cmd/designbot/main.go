package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/voyago/designbot/internal/config"
	"github.com/voyago/designbot/internal/db"
	"github.com/voyago/designbot/internal/designer"
	"github.com/voyago/designbot/internal/logging"
	"github.com/voyago/designbot/internal/promptgen"
	"github.com/voyago/designbot/internal/session"
	"github.com/voyago/designbot/internal/synth"
	"github.com/voyago/designbot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	queries := db.NewQueries(database)

	// Provider clients are built once at startup and reused for every
	// request. The completion provider answers in seconds; the synthesis
	// provider can take up to two minutes per image, so it gets its own
	// pool and timeout.
	completionHTTP := pooledClient(60*time.Second, 30)
	synthesisHTTP := pooledClient(120*time.Second, 20)

	openaiOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithHTTPClient(completionHTTP),
	}
	if cfg.OpenAI.BaseURL != "" {
		openaiOpts = append(openaiOpts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	completions := openai.NewClient(openaiOpts...)

	enhancer := promptgen.NewEnhancer(completions, cfg.OpenAI.Model, log.Named("promptgen"))
	synthesizer := synth.NewClient(cfg.Synthesis.BaseURL, cfg.Synthesis.APIKey, synthesisHTTP, log.Named("synth"))

	botHTTP := pooledClient(30*time.Second, 30)
	bot := telegram.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.Token, botHTTP, log.Named("telegram"))

	d := designer.New(queries, enhancer, synthesizer, bot, session.NewStore(), log.Named("designer"))

	go sweepExpired(ctx, queries, log)

	srv := telegram.NewServer(cfg.ListenAddr, cfg.Telegram.WebhookPath, d, log.Named("webhook"))
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.ListenAddr, err)
	}
	log.Info("designbot started", zap.String("addr", srv.Addr()))

	return srv.Serve(ctx)
}

func pooledClient(timeout time.Duration, perHost int) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: perHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// sweepExpired periodically drops expired generation rows. Reads already
// filter on expiry; this only reclaims storage.
func sweepExpired(ctx context.Context, queries *db.Queries, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queries.DeleteExpiredGenerations(ctx)
			if err != nil {
				log.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("swept expired generations", zap.Int64("count", n))
			}
		}
	}
}
