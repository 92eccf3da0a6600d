package cmd

import (
	"fmt"

	"hud/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing items that are old.

		Remove items that are older than 90 days from the database, except
		items the user has bookmarked. This is to keep the database size
		down and to keep the feed fresh.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "hud.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"HUD_DATABASE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)
			return db.Tidy(database)
		},
	}
}
