package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lox/mcblackjack/internal/solver"
)

// PolicyTOML is the TOML summary of a policy. Each row maps a player sum to
// ten letters, H or S, for dealer A through 10.
type PolicyTOML struct {
	RunID       string            `toml:"run_id"`
	GeneratedAt time.Time         `toml:"generated_at"`
	Episodes    int64             `toml:"episodes"`
	Columns     []string          `toml:"columns"`
	UsableAce   map[string]string `toml:"usable_ace"`
	NoUsableAce map[string]string `toml:"no_usable_ace"`
}

// NewPolicyTOML builds the TOML summary of f.
func NewPolicyTOML(f *solver.PolicyFile) (*PolicyTOML, error) {
	if f == nil {
		return nil, fmt.Errorf("render: policy file is nil")
	}
	policy, err := f.Policy()
	if err != nil {
		return nil, err
	}

	out := &PolicyTOML{
		RunID:       f.RunID,
		GeneratedAt: f.GeneratedAt,
		Episodes:    f.Episodes,
		Columns:     dealerLabels,
		UsableAce:   make(map[string]string),
		NoUsableAce: make(map[string]string),
	}
	for sum := solver.MinSum; sum <= solver.MaxSum; sum++ {
		var soft, hard strings.Builder
		for s, hit := range policy.All() {
			if s.Sum != sum {
				continue
			}
			row := &hard
			if s.UsableAce {
				row = &soft
			}
			if hit {
				row.WriteByte('H')
			} else {
				row.WriteByte('S')
			}
		}
		key := strconv.Itoa(sum)
		out.UsableAce[key] = soft.String()
		out.NoUsableAce[key] = hard.String()
	}
	return out, nil
}

// WriteTOML writes the TOML summary of f to w.
func WriteTOML(w io.Writer, f *solver.PolicyFile) error {
	doc, err := NewPolicyTOML(f)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(doc)
}
