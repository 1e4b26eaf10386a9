package solver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/fileutil"
)

const checkpointFileVersion = 1

// ErrUnsupportedVersion is returned for checkpoint or policy files written by
// an incompatible version.
var ErrUnsupportedVersion = errors.New("solver: unsupported file version")

type checkpointSnapshot struct {
	Version    int
	RunID      string
	Training   TrainingConfig
	Partitions []partitionSnapshot
}

type partitionSnapshot struct {
	Index         int
	Low, High     int
	Target        int64
	Episodes      int64
	PolicyChanges int64
	RNG           []byte
	Values        []float64
	Visits        []int64
	Policy        []bool
}

// EncodeMsg writes the snapshot as a msgpack map.
func (s *checkpointSnapshot) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(4); err != nil {
		return err
	}
	if err := w.WriteString("version"); err != nil {
		return err
	}
	if err := w.WriteInt(s.Version); err != nil {
		return err
	}
	if err := w.WriteString("run_id"); err != nil {
		return err
	}
	if err := w.WriteString(s.RunID); err != nil {
		return err
	}
	if err := w.WriteString("training"); err != nil {
		return err
	}
	if err := encodeTrainingConfig(w, s.Training); err != nil {
		return err
	}
	if err := w.WriteString("partitions"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(s.Partitions))); err != nil {
		return err
	}
	for i := range s.Partitions {
		if err := s.Partitions[i].EncodeMsg(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg reads a snapshot written by EncodeMsg. Unknown keys are skipped.
func (s *checkpointSnapshot) DecodeMsg(r *msgp.Reader) error {
	n, err := r.ReadMapHeader()
	if err != nil {
		return err
	}
	for range n {
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "version":
			s.Version, err = r.ReadInt()
		case "run_id":
			s.RunID, err = r.ReadString()
		case "training":
			s.Training, err = decodeTrainingConfig(r)
		case "partitions":
			var count uint32
			count, err = r.ReadArrayHeader()
			if err != nil {
				return err
			}
			s.Partitions = make([]partitionSnapshot, count)
			for i := range s.Partitions {
				if err = s.Partitions[i].DecodeMsg(r); err != nil {
					break
				}
			}
		default:
			err = r.Skip()
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return nil
}

func encodeTrainingConfig(w *msgp.Writer, c TrainingConfig) error {
	fields := []struct {
		key string
		val int64
	}{
		{"episodes", c.Episodes},
		{"seed", c.Seed},
		{"workers", int64(c.Workers)},
		{"progress_every", c.ProgressEvery},
		{"checkpoint_every", c.CheckpointEvery},
		{"checkpoint_interval_ns", int64(c.CheckpointInterval)},
	}
	if err := w.WriteMapHeader(uint32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := w.WriteString(f.key); err != nil {
			return err
		}
		if err := w.WriteInt64(f.val); err != nil {
			return err
		}
	}
	return nil
}

func decodeTrainingConfig(r *msgp.Reader) (TrainingConfig, error) {
	var c TrainingConfig
	n, err := r.ReadMapHeader()
	if err != nil {
		return c, err
	}
	for range n {
		key, err := r.ReadString()
		if err != nil {
			return c, err
		}
		var v int64
		if v, err = r.ReadInt64(); err != nil {
			return c, fmt.Errorf("decode training.%s: %w", key, err)
		}
		switch key {
		case "episodes":
			c.Episodes = v
		case "seed":
			c.Seed = v
		case "workers":
			c.Workers = int(v)
		case "progress_every":
			c.ProgressEvery = v
		case "checkpoint_every":
			c.CheckpointEvery = v
		case "checkpoint_interval_ns":
			c.CheckpointInterval = time.Duration(v)
		}
	}
	return c, nil
}

// EncodeMsg writes one partition as a msgpack map.
func (p *partitionSnapshot) EncodeMsg(w *msgp.Writer) error {
	ints := []struct {
		key string
		val int64
	}{
		{"index", int64(p.Index)},
		{"low", int64(p.Low)},
		{"high", int64(p.High)},
		{"target", p.Target},
		{"episodes", p.Episodes},
		{"policy_changes", p.PolicyChanges},
	}
	// ints plus rng, values, visits and policy
	if err := w.WriteMapHeader(uint32(len(ints) + 4)); err != nil {
		return err
	}
	for _, f := range ints {
		if err := w.WriteString(f.key); err != nil {
			return err
		}
		if err := w.WriteInt64(f.val); err != nil {
			return err
		}
	}

	if err := w.WriteString("rng"); err != nil {
		return err
	}
	if err := w.WriteBytes(p.RNG); err != nil {
		return err
	}

	if err := w.WriteString("values"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(p.Values))); err != nil {
		return err
	}
	for _, v := range p.Values {
		if err := w.WriteFloat64(v); err != nil {
			return err
		}
	}

	if err := w.WriteString("visits"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(p.Visits))); err != nil {
		return err
	}
	for _, v := range p.Visits {
		if err := w.WriteInt64(v); err != nil {
			return err
		}
	}

	if err := w.WriteString("policy"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(p.Policy))); err != nil {
		return err
	}
	for _, hit := range p.Policy {
		if err := w.WriteBool(hit); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg reads a partition written by EncodeMsg.
func (p *partitionSnapshot) DecodeMsg(r *msgp.Reader) error {
	n, err := r.ReadMapHeader()
	if err != nil {
		return err
	}
	for range n {
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "index", "low", "high", "target", "episodes", "policy_changes":
			var v int64
			if v, err = r.ReadInt64(); err != nil {
				break
			}
			switch key {
			case "index":
				p.Index = int(v)
			case "low":
				p.Low = int(v)
			case "high":
				p.High = int(v)
			case "target":
				p.Target = v
			case "episodes":
				p.Episodes = v
			case "policy_changes":
				p.PolicyChanges = v
			}
		case "rng":
			p.RNG, err = r.ReadBytes(nil)
		case "values":
			var count uint32
			if count, err = r.ReadArrayHeader(); err != nil {
				break
			}
			p.Values = make([]float64, count)
			for i := range p.Values {
				if p.Values[i], err = r.ReadFloat64(); err != nil {
					break
				}
			}
		case "visits":
			var count uint32
			if count, err = r.ReadArrayHeader(); err != nil {
				break
			}
			p.Visits = make([]int64, count)
			for i := range p.Visits {
				if p.Visits[i], err = r.ReadInt64(); err != nil {
					break
				}
			}
		case "policy":
			var count uint32
			if count, err = r.ReadArrayHeader(); err != nil {
				break
			}
			p.Policy = make([]bool, count)
			for i := range p.Policy {
				if p.Policy[i], err = r.ReadBool(); err != nil {
					break
				}
			}
		default:
			err = r.Skip()
		}
		if err != nil {
			return fmt.Errorf("decode partition %s: %w", key, err)
		}
	}
	return nil
}

// SaveCheckpoint writes a snapshot of the trainer state to path.
func (t *Trainer) SaveCheckpoint(path string) error {
	snap, err := t.buildCheckpoint()
	if err != nil {
		return err
	}
	err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		mw := msgp.NewWriter(w)
		if err := snap.EncodeMsg(mw); err != nil {
			return fmt.Errorf("encode checkpoint: %w", err)
		}
		return mw.Flush()
	})
	if err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}

	episodes := t.Episodes()
	t.lastCheckpointAt = t.clock.Now()
	t.lastCheckpointEpisode = episodes
	t.logger.Debug().Str("path", path).Int64("episode", episodes).Msg("checkpoint written")
	return nil
}

func (t *Trainer) buildCheckpoint() (*checkpointSnapshot, error) {
	snap := &checkpointSnapshot{
		Version:    checkpointFileVersion,
		RunID:      t.runID,
		Training:   t.cfg,
		Partitions: make([]partitionSnapshot, 0, len(t.partitions)),
	}
	for _, p := range t.partitions {
		state, err := p.source.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("snapshot rng of partition %d: %w", p.index, err)
		}
		l := p.learner
		snap.Partitions = append(snap.Partitions, partitionSnapshot{
			Index:         p.index,
			Low:           int(p.low),
			High:          int(p.high),
			Target:        p.target,
			Episodes:      l.episodes,
			PolicyChanges: l.policyChanges,
			RNG:           state,
			Values:        append([]float64(nil), l.values[:]...),
			Visits:        append([]int64(nil), l.visits[:]...),
			Policy:        append([]bool(nil), l.policy.hit[:]...),
		})
	}
	return snap, nil
}

// LoadTrainerFromCheckpoint restores a trainer, including the position of
// every random stream, from a previously saved checkpoint.
func LoadTrainerFromCheckpoint(path string) (*Trainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := decodeCheckpoint(f)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}

	trainer, err := NewTrainer(snap.Training)
	if err != nil {
		return nil, err
	}
	trainer.runID = snap.RunID

	if len(snap.Partitions) != len(trainer.partitions) {
		return nil, fmt.Errorf("checkpoint has %d partitions, config expects %d", len(snap.Partitions), len(trainer.partitions))
	}
	for i, ps := range snap.Partitions {
		p := trainer.partitions[i]
		if ps.Index != p.index || blackjack.Card(ps.Low) != p.low || blackjack.Card(ps.High) != p.high {
			return nil, fmt.Errorf("checkpoint partition %d covers %d-%d, expected %s-%s", ps.Index, ps.Low, ps.High, p.low, p.high)
		}
		if err := p.source.UnmarshalBinary(ps.RNG); err != nil {
			return nil, fmt.Errorf("restore rng of partition %d: %w", i, err)
		}
		l := p.learner
		copy(l.values[:], ps.Values)
		copy(l.visits[:], ps.Visits)
		copy(l.policy.hit[:], ps.Policy)
		l.episodes = ps.Episodes
		l.policyChanges = ps.PolicyChanges
		p.target = ps.Target
	}
	return trainer, nil
}

func decodeCheckpoint(r io.Reader) (*checkpointSnapshot, error) {
	var snap checkpointSnapshot
	if err := snap.DecodeMsg(msgp.NewReader(r)); err != nil {
		return nil, err
	}
	if snap.Version != checkpointFileVersion {
		return nil, fmt.Errorf("%w: checkpoint version %d", ErrUnsupportedVersion, snap.Version)
	}
	if err := snap.Training.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint training invalid: %w", err)
	}
	for _, p := range snap.Partitions {
		if len(p.Values) != NumPairs || len(p.Visits) != NumPairs || len(p.Policy) != NumStates {
			return nil, fmt.Errorf("checkpoint partition %d has malformed tables", p.Index)
		}
	}
	return &snap, nil
}
