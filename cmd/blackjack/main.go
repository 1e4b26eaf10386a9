package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Debug    bool   `help:"Enable debug logging"`
	JSONLogs bool   `name:"json-logs" help:"Write logs as JSON instead of console output"`
	Config   string `short:"c" help:"HCL configuration file (missing file means defaults)" default:"blackjack.hcl" type:"path"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Train   TrainCmd         `cmd:"" help:"Learn a policy with Monte Carlo exploring starts"`
	Eval    EvalCmd          `cmd:"" help:"Play hands greedily with a saved policy"`
	Show    ShowCmd          `cmd:"" help:"Print or export a saved policy"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Learn and inspect a blackjack hit/stand policy"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
