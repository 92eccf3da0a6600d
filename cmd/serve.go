package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hud/config"
	"hud/db"
	"hud/feed"
	"hud/ingest"
	"hud/models"
	"hud/server"
	"hud/summarize"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the hud API",
		Description: `Starts the hud HTTP server and the ingest worker.

		Launches the HTTP server on the specified or default port and starts the
		background worker that polls stale RSS sources and forwards twitter
		sources to the external fetch function. Feed pages, bookmarks and
		preferences are served from the SQLite database.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file location",
				EnvVars: []string{"HUD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "hud.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"HUD_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				Usage:   "Hostname to serve on",
				EnvVars: []string{"HUD_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to serve on",
				EnvVars: []string{"HUD_PORT"},
			},
			&cli.StringFlag{
				Name:    "auth-secret",
				Usage:   "Secret used to verify session tokens",
				EnvVars: []string{"HUD_AUTH_SECRET"},
			},
			&cli.StringFlag{
				Name:    "ai-key",
				Usage:   "Server-wide fallback Gemini API key",
				EnvVars: []string{"HUD_AI_KEY"},
			},
		},
		Action: func(ctx *cli.Context) error {
			fmt.Println("Starting hud...")

			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			if ctx.IsSet("hostname") {
				cfg.Server.Hostname = ctx.String("hostname")
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("auth-secret") {
				cfg.Auth.Secret = ctx.String("auth-secret")
			}
			if ctx.IsSet("ai-key") {
				cfg.AI.APIKey = ctx.String("ai-key")
			}
			if cfg.Auth.Secret == "" {
				return errors.New("no auth secret configured, set --auth-secret or HUD_AUTH_SECRET")
			}

			database, err := db.New(ctx.String("database"))
			if err != nil {
				return err
			}

			// Channel carrying refresh jobs to the ingest worker
			jobs := make(chan models.RefreshJob, cfg.Refresh.QueueSize)

			cache := feed.NewCache(cfg.Cache.MaxEntries, cfg.CacheTTL())
			throttler := feed.NewThrottler(cfg.RefreshWindow(), cfg.StaleAfter())
			assembler := feed.NewAssembler(database, cache, throttler, jobs)

			fetcher := ingest.NewFetcher(cfg.IngestTimeout())
			trigger := ingest.NewTrigger(cfg.Ingest.FetchBaseURL, cfg.Ingest.FetchToken, cfg.IngestTimeout())
			worker := ingest.NewWorker(database, fetcher, trigger, jobs, cfg.ScanInterval(), cfg.StaleAfter())

			bc := server.NewBroadcaster()
			worker.SetBroadcaster(bc)

			app := server.Server(&server.ServerConfig{
				Hostname:    cfg.Server.Hostname,
				CORSOrigins: cfg.Server.CORSOrigins,
				AuthSecret:  []byte(cfg.Auth.Secret),
				Store:       database,
				Assembler:   assembler,
				Throttler:   throttler,
				Summarizer:  summarize.NewClient(cfg.AI.BaseURL, cfg.AI.Model),
				ServerAIKey: cfg.AI.APIKey,
				Jobs:        jobs,
				Broadcaster: bc,
			})

			// Graceful shutdown
			workerCtx, stopWorker := context.WithCancel(ctx.Context)
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			var wg sync.WaitGroup

			go func() {
				<-c
				fmt.Println("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Error(err)
				}
				stopWorker()
				bc.Shutdown()
				wg.Add(-2)
			}()

			go func() {
				fmt.Println("Starting ingest worker...")
				worker.Run(workerCtx)
			}()

			go func() {
				fmt.Println("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
					log.Panic(err)
				}
			}()

			// Wait for both the server and worker to shutdown
			wg.Add(2)
			wg.Wait()

			if err := database.Close(); err != nil {
				log.Error(err)
			}

			fmt.Println("Done!")
			return nil
		},
	}
}
