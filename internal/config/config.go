package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/mcblackjack/internal/solver"
)

// File represents a training configuration file
type File struct {
	Training *TrainingBlock `hcl:"training,block"`
	Output   *OutputBlock   `hcl:"output,block"`
	Eval     *EvalBlock     `hcl:"eval,block"`
}

// TrainingBlock overrides solver.TrainingConfig. Unset attributes keep the
// built-in defaults.
type TrainingBlock struct {
	Episodes           *int64  `hcl:"episodes,optional"`
	Seed               *int64  `hcl:"seed,optional"`
	Workers            *int    `hcl:"workers,optional"`
	ProgressEvery      *int64  `hcl:"progress_every,optional"`
	CheckpointEvery    *int64  `hcl:"checkpoint_every,optional"`
	CheckpointInterval *string `hcl:"checkpoint_interval,optional"`
}

// OutputBlock names the files a training run writes
type OutputBlock struct {
	Policy     string `hcl:"policy,optional"`
	Checkpoint string `hcl:"checkpoint,optional"`
	Heatmap    string `hcl:"heatmap,optional"`
}

// EvalBlock configures greedy evaluation of a saved policy
type EvalBlock struct {
	Hands   int   `hcl:"hands,optional"`
	Seed    int64 `hcl:"seed,optional"`
	Workers int   `hcl:"workers,optional"`
}

// DefaultPolicyPath is where the learned policy is written when no output
// block names one.
const DefaultPolicyPath = "policy.json"

// Load reads filename. A missing file is not an error and yields an empty
// configuration, so only the built-in defaults apply.
func Load(filename string) (*File, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return &File{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config File
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that cannot be checked by the training config alone
func (f *File) Validate() error {
	if f.Training != nil && f.Training.CheckpointInterval != nil {
		if _, err := time.ParseDuration(*f.Training.CheckpointInterval); err != nil {
			return fmt.Errorf("invalid checkpoint_interval: %w", err)
		}
	}
	if f.Eval != nil {
		if f.Eval.Hands < 0 {
			return fmt.Errorf("invalid eval hands: %d", f.Eval.Hands)
		}
		if f.Eval.Workers < 0 {
			return fmt.Errorf("invalid eval workers: %d", f.Eval.Workers)
		}
	}
	return nil
}

// Apply layers the training block over cfg
func (f *File) Apply(cfg *solver.TrainingConfig) error {
	t := f.Training
	if t == nil {
		return nil
	}
	if t.Episodes != nil {
		cfg.Episodes = *t.Episodes
	}
	if t.Seed != nil {
		cfg.Seed = *t.Seed
	}
	if t.Workers != nil {
		cfg.Workers = *t.Workers
	}
	if t.ProgressEvery != nil {
		cfg.ProgressEvery = *t.ProgressEvery
	}
	if t.CheckpointEvery != nil {
		cfg.CheckpointEvery = *t.CheckpointEvery
	}
	if t.CheckpointInterval != nil {
		d, err := time.ParseDuration(*t.CheckpointInterval)
		if err != nil {
			return fmt.Errorf("invalid checkpoint_interval: %w", err)
		}
		cfg.CheckpointInterval = d
	}
	return nil
}

// Outputs returns the output block with defaults filled in
func (f *File) Outputs() OutputBlock {
	var out OutputBlock
	if f.Output != nil {
		out = *f.Output
	}
	if out.Policy == "" {
		out.Policy = DefaultPolicyPath
	}
	return out
}

// Evaluation returns the eval block with defaults filled in
func (f *File) Evaluation() EvalBlock {
	var out EvalBlock
	if f.Eval != nil {
		out = *f.Eval
	}
	if out.Hands == 0 {
		out.Hands = 1_000_000
	}
	if out.Seed == 0 {
		out.Seed = 1
	}
	if out.Workers == 0 {
		out.Workers = 1
	}
	return out
}
