package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "hud",
		Usage: "A personal news heads-up display",
		Description: `A personal news aggregation service that blends RSS feeds and
		twitter handles into one ranked feed.

		Hud polls RSS sources in-process, forwards twitter sources to an
		external fetch function and serves the blended feed, bookmarks and
		preferences over an HTTP API. Feed pages are scored by a weighted
		mix of focus topic relevance and popularity.

		Flags can generally be set via environment variables, e.g.:

		--database => HUD_DATABASE=hud.db
		--port => HUD_PORT=8080
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			fetchCmd(),
			tokenCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
