package solver

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/fileutil"
)

const (
	policyFileVersion = 1
	policySchemaURL   = "https://mcblackjack.dev/schemas/policy.json"
)

//go:embed schemas
var schemaFiles embed.FS

var (
	policySchemaOnce sync.Once
	policySchema     *jsonschema.Schema
	policySchemaErr  error
)

// PolicyFile is the exported form of a learned policy.
type PolicyFile struct {
	Version     int          `json:"version"`
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Episodes    int64        `json:"episodes"`
	States      []StateEntry `json:"states"`
}

// StateEntry is one state of a PolicyFile with its action values.
type StateEntry struct {
	Sum         int     `json:"sum"`
	UsableAce   bool    `json:"usable_ace"`
	DealerCard  int     `json:"dealer_card"`
	Hit         bool    `json:"hit"`
	QHit        float64 `json:"q_hit"`
	QStand      float64 `json:"q_stand"`
	VisitsHit   int64   `json:"visits_hit"`
	VisitsStand int64   `json:"visits_stand"`
}

// PolicyFile snapshots the trainer's merged tables.
func (t *Trainer) PolicyFile() *PolicyFile {
	tb := t.merged()
	f := &PolicyFile{
		Version:     policyFileVersion,
		RunID:       t.runID,
		GeneratedAt: t.clock.Now().UTC(),
		Episodes:    t.Episodes(),
		States:      make([]StateEntry, 0, NumStates),
	}
	for s := range NumStates {
		st := StateAt(s)
		hi, si := pairIndex(s, true), pairIndex(s, false)
		f.States = append(f.States, StateEntry{
			Sum:         st.Sum,
			UsableAce:   st.UsableAce,
			DealerCard:  int(st.DealerCard),
			Hit:         tb.policy.hit[s],
			QHit:        tb.values[hi],
			QStand:      tb.values[si],
			VisitsHit:   tb.visits[hi],
			VisitsStand: tb.visits[si],
		})
	}
	return f
}

// Save writes the policy file as indented JSON.
func (f *PolicyFile) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// Policy rebuilds the hit/stand table from the file's states.
func (f *PolicyFile) Policy() (Policy, error) {
	var p Policy
	var seen [NumStates]bool
	for _, e := range f.States {
		s := blackjack.PlayerState{Sum: e.Sum, UsableAce: e.UsableAce, DealerCard: blackjack.Card(e.DealerCard)}
		i, err := StateIndex(s)
		if err != nil {
			return Policy{}, err
		}
		if seen[i] {
			return Policy{}, fmt.Errorf("duplicate state %s", s)
		}
		seen[i] = true
		p.hit[i] = e.Hit
	}
	for i, ok := range seen {
		if !ok {
			return Policy{}, fmt.Errorf("missing state %s", StateAt(i))
		}
	}
	return p, nil
}

// LoadPolicyFile reads and validates a policy file written by Save.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePolicyFile(data)
}

// ParsePolicyFile validates data against the policy schema and decodes it.
func ParsePolicyFile(data []byte) (*PolicyFile, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		if v, ok := m["version"].(float64); ok && int(v) != policyFileVersion {
			return nil, fmt.Errorf("%w: policy version %d", ErrUnsupportedVersion, int(v))
		}
	}

	schema, err := compiledPolicySchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("policy file does not match schema: %w", err)
	}

	var f PolicyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return &f, nil
}

func compiledPolicySchema() (*jsonschema.Schema, error) {
	policySchemaOnce.Do(func() {
		data, err := schemaFiles.ReadFile("schemas/policy.json")
		if err != nil {
			policySchemaErr = fmt.Errorf("failed to read policy schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(policySchemaURL, bytes.NewReader(data)); err != nil {
			policySchemaErr = fmt.Errorf("failed to add policy schema: %w", err)
			return
		}
		policySchema, policySchemaErr = compiler.Compile(policySchemaURL)
	})
	return policySchema, policySchemaErr
}
