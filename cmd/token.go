package cmd

import (
	"errors"
	"fmt"
	"time"

	"hud/server"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// tokenCmd mints a session token for local development and testing.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a session token",
		Description: `Mints a signed session token for a user id.

		The token is printed to stdout and can be passed as a bearer token
		to the API. Meant for local development and testing; in production
		tokens come from the identity provider sharing the same secret.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "auth-secret",
				Usage:   "Secret used to sign session tokens",
				EnvVars: []string{"HUD_AUTH_SECRET"},
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "User id to mint the token for, defaults to a random id",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email claim to embed in the token",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "How long the token stays valid",
				Value: 24 * time.Hour,
			},
		},
		Action: func(ctx *cli.Context) error {
			secret := ctx.String("auth-secret")
			if secret == "" {
				return errors.New("no auth secret configured, set --auth-secret or HUD_AUTH_SECRET")
			}

			user := ctx.String("user")
			if user == "" {
				user = uuid.New().String()
				fmt.Println("User id: ", user)
			}

			token, err := server.MintToken([]byte(secret), user, ctx.String("email"), ctx.Duration("ttl"))
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}
