package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/cmd/tablectl/internal/commands"
	"github.com/wolfeidau/worktable/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool   `help:"Enable debug mode." env:"WORKTABLE_DEBUG"`
		Server    string `help:"API server URL, defaults to the server of the saved session" env:"WORKTABLE_SERVER"`
		ConfigDir string `help:"Directory holding the saved session, defaults to ~/.worktable" type:"path" env:"WORKTABLE_CONFIG_DIR"`
		Version   kong.VersionFlag

		Signup    commands.SignupCmd    `cmd:"" help:"Create an account and its first organization"`
		Login     commands.LoginCmd     `cmd:"" help:"Log in and save the session"`
		Logout    commands.LogoutCmd    `cmd:"" help:"End the saved session"`
		Whoami    commands.WhoamiCmd    `cmd:"" help:"Show the logged in user and organizations"`
		Show      commands.ShowCmd      `cmd:"" help:"Print the organization's table document"`
		Apply     commands.ApplyCmd     `cmd:"" help:"Apply a YAML edit script to the table document"`
		Switch    commands.SwitchCmd    `cmd:"" help:"Change the active organization"`
		CreateOrg commands.CreateOrgCmd `cmd:"" help:"Create an organization and switch to it"`
		AddMember commands.AddMemberCmd `cmd:"" help:"Add a user to an organization"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("tablectl"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)
	if !cli.Debug {
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	}

	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Version:   version,
		Server:    cli.Server,
		ConfigDir: cli.ConfigDir,
	})
	cmd.FatalIfErrorf(err)
}
