package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lox/mcblackjack/internal/config"
	"github.com/lox/mcblackjack/internal/fileutil"
	"github.com/lox/mcblackjack/internal/render"
	"github.com/lox/mcblackjack/internal/solver"
)

type ShowCmd struct {
	Policy  string `arg:"" optional:"" help:"path to the policy file (defaults to the configured output)"`
	Format  string `help:"output format" enum:"grid,toml,heatmap" default:"grid"`
	Out     string `short:"o" help:"write to a file instead of stdout"`
	NoColor bool   `help:"disable colours in grid output"`
}

func (cmd *ShowCmd) Run(g *Globals) error {
	path := cmd.Policy
	if path == "" {
		file, err := config.Load(g.Config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = file.Outputs().Policy
	}

	f, err := solver.LoadPolicyFile(path)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	if cmd.Out == "" {
		return cmd.write(os.Stdout, f)
	}
	return fileutil.WriteAtomic(cmd.Out, 0o644, func(w io.Writer) error {
		return cmd.write(w, f)
	})
}

func (cmd *ShowCmd) write(w io.Writer, f *solver.PolicyFile) error {
	switch cmd.Format {
	case "toml":
		return render.WriteTOML(w, f)
	case "heatmap":
		return render.Heatmap(w, f)
	default:
		policy, err := f.Policy()
		if err != nil {
			return err
		}
		return render.Grid(w, &policy, !cmd.NoColor && cmd.Out == "")
	}
}
