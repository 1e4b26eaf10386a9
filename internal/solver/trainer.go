package solver

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	rand "math/rand/v2"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/randutil"
)

// Progress contains metadata emitted while training.
type Progress struct {
	Episode       int64
	Total         int64
	Rate          float64 // episodes per second over the last report window
	PolicyChanges int64   // greedy action flips over the last report window
	Agreement     float64 // fraction of states matching ReferencePolicy
	Elapsed       time.Duration
}

// partition is one Learner responsible for the dealer up-cards low..high.
type partition struct {
	index     int
	low, high blackjack.Card
	target    int64
	source    *rand.PCG
	learner   *Learner
}

func newPartition(index int, low, high blackjack.Card, target, seed int64) *partition {
	src := randutil.DerivePCG(seed, index)
	rng := rand.New(src)
	return &partition{
		index:   index,
		low:     low,
		high:    high,
		target:  target,
		source:  src,
		learner: NewLearner(blackjack.NewInfiniteShoe(rng), NewExploringStartsRange(rng, low, high)),
	}
}

func (p *partition) owns(c blackjack.Card) bool {
	return c >= p.low && c <= p.high
}

func (p *partition) run(ctx context.Context, n int64) error {
	for range n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := p.learner.RunEpisode(); err != nil {
			return fmt.Errorf("partition %d (dealer %s-%s): %w", p.index, p.low, p.high, err)
		}
	}
	return nil
}

// Trainer runs Monte Carlo exploring-starts control for a fixed number of
// episodes.
type Trainer struct {
	cfg        TrainingConfig
	runID      string
	partitions []*partition
	clock      quartz.Clock
	logger     zerolog.Logger

	checkpointPath        string
	lastCheckpointAt      time.Time
	lastCheckpointEpisode int64
	lastChanges           int64
}

// NewTrainer constructs a trainer with fresh tables.
func NewTrainer(cfg TrainingConfig) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	t := &Trainer{
		cfg:    cfg,
		runID:  uuid.NewString(),
		clock:  quartz.NewReal(),
		logger: zerolog.Nop(),
	}
	t.partitions = make([]*partition, 0, cfg.Workers)
	for i, r := range splitDealerCards(cfg.Workers) {
		t.partitions = append(t.partitions, newPartition(i, r.low, r.high, 0, cfg.Seed))
	}
	t.assignTargets(cfg.Episodes)
	return t, nil
}

type cardRange struct {
	low, high blackjack.Card
}

// splitDealerCards divides A..10 into n contiguous ranges; the first
// 10%n ranges take one extra card.
func splitDealerCards(n int) []cardRange {
	base, extra := numDealerCards/n, numDealerCards%n
	out := make([]cardRange, 0, n)
	next := blackjack.Ace
	for i := range n {
		size := base
		if i < extra {
			size++
		}
		out = append(out, cardRange{low: next, high: next + blackjack.Card(size) - 1})
		next += blackjack.Card(size)
	}
	return out
}

// assignTargets gives each partition a share of total proportional to the
// number of dealer cards it owns. Shares always add up to total.
func (t *Trainer) assignTargets(total int64) {
	for _, p := range t.partitions {
		before := mulDiv(int64(p.low-1), total, int64(numDealerCards))
		p.target = mulDiv(int64(p.high), total, int64(numDealerCards)) - before
	}
}

// SetClock replaces the wall clock used for rates and timed checkpoints.
func (t *Trainer) SetClock(clock quartz.Clock) {
	t.clock = clock
}

// SetLogger attaches a logger for checkpoint and resume events.
func (t *Trainer) SetLogger(logger zerolog.Logger) {
	t.logger = logger
}

// EnableCheckpoints writes checkpoints to path on the configured triggers and
// at the end of every run.
func (t *Trainer) EnableCheckpoints(path string) {
	t.checkpointPath = path
}

// SetProgressEvery overrides the progress interval.
func (t *Trainer) SetProgressEvery(n int64) {
	if n < 0 {
		n = 0
	}
	t.cfg.ProgressEvery = n
}

// SetTotalEpisodes changes how many episodes the run targets in total. It
// fails if any partition has already gone past its new share.
func (t *Trainer) SetTotalEpisodes(n int64) error {
	if n <= 0 {
		return errors.New("episodes must be > 0")
	}
	prev := t.cfg.Episodes
	t.assignTargets(n)
	for _, p := range t.partitions {
		if p.learner.Episodes() > p.target {
			t.assignTargets(prev)
			return fmt.Errorf("total episodes %d less than completed %d", n, t.Episodes())
		}
	}
	t.cfg.Episodes = n
	return nil
}

// TrainingConfig returns the effective configuration, including the seed
// chosen when none was set.
func (t *Trainer) TrainingConfig() TrainingConfig {
	return t.cfg
}

// RunID identifies the run across checkpoints and exported policies.
func (t *Trainer) RunID() string {
	return t.runID
}

// Episodes returns how many episodes have completed across all partitions.
func (t *Trainer) Episodes() int64 {
	var n int64
	for _, p := range t.partitions {
		n += p.learner.Episodes()
	}
	return n
}

func (t *Trainer) policyChanges() int64 {
	var n int64
	for _, p := range t.partitions {
		n += p.learner.PolicyChanges()
	}
	return n
}

// Run executes episodes until the configured total is reached, reporting
// progress between batches. Cancelling ctx stops the run between episodes;
// the tables stay consistent and a checkpoint is written when enabled.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	total := t.cfg.Episodes
	batch := t.cfg.ProgressEvery
	if batch <= 0 {
		batch = max(total/100, 1)
	}

	start := t.clock.Now()
	t.lastCheckpointAt = start
	t.lastCheckpointEpisode = t.Episodes()
	t.lastChanges = t.policyChanges()

	for done := t.Episodes(); done < total; {
		batchStart := t.clock.Now()
		end := min(done+batch, total)
		if err := t.runUntil(ctx, end); err != nil {
			if ctx.Err() != nil && t.checkpointPath != "" {
				if cerr := t.SaveCheckpoint(t.checkpointPath); cerr != nil {
					t.logger.Error().Err(cerr).Msg("checkpoint after cancellation failed")
				}
			}
			return err
		}
		reached := t.Episodes()

		if progress != nil {
			changes := t.policyChanges()
			elapsed := t.clock.Since(batchStart)
			rate := 0.0
			if elapsed > 0 {
				rate = float64(reached-done) / elapsed.Seconds()
			}
			policy := t.Policy()
			ref := ReferencePolicy()
			progress(Progress{
				Episode:       reached,
				Total:         total,
				Rate:          rate,
				PolicyChanges: changes - t.lastChanges,
				Agreement:     Agreement(&policy, &ref),
				Elapsed:       t.clock.Since(start),
			})
			t.lastChanges = changes
		}

		if err := t.maybeCheckpoint(reached); err != nil {
			return err
		}
		done = reached
	}

	if t.checkpointPath != "" {
		return t.SaveCheckpoint(t.checkpointPath)
	}
	return nil
}

// runUntil advances every partition to its share of end episodes. Shares
// are cumulative, so they add up to end and each batch makes progress.
func (t *Trainer) runUntil(ctx context.Context, end int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	quotas := make([]int64, len(t.partitions))
	var cum int64
	for i, p := range t.partitions {
		before := mulDiv(end, cum, t.cfg.Episodes)
		cum += p.target
		quotas[i] = mulDiv(end, cum, t.cfg.Episodes) - before - p.learner.Episodes()
	}

	if len(t.partitions) == 1 {
		return t.partitions[0].run(ctx, quotas[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range t.partitions {
		n := quotas[i]
		if n <= 0 {
			continue
		}
		g.Go(func() error {
			return p.run(gctx, n)
		})
	}
	return g.Wait()
}

// mulDiv returns floor(a*b/c) without overflowing. Callers guarantee
// 0 <= a <= c, so the result fits in b.
func mulDiv(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}

func (t *Trainer) maybeCheckpoint(episode int64) error {
	if t.checkpointPath == "" {
		return nil
	}
	due := t.cfg.CheckpointEvery > 0 && episode-t.lastCheckpointEpisode >= t.cfg.CheckpointEvery
	if t.cfg.CheckpointInterval > 0 && t.clock.Since(t.lastCheckpointAt) >= t.cfg.CheckpointInterval {
		due = true
	}
	if !due {
		return nil
	}
	return t.SaveCheckpoint(t.checkpointPath)
}

// merged combines the partitions' tables. Each state is taken from the
// partition owning its dealer card, so the result is exact.
func (t *Trainer) merged() *tables {
	if len(t.partitions) == 1 {
		tb := t.partitions[0].learner.tables
		return &tb
	}
	out := newTables()
	for s := range NumStates {
		card := StateAt(s).DealerCard
		for _, p := range t.partitions {
			if !p.owns(card) {
				continue
			}
			src := &p.learner.tables
			for _, hit := range []bool{false, true} {
				i := pairIndex(s, hit)
				out.values[i] = src.values[i]
				out.visits[i] = src.visits[i]
			}
			out.policy.hit[s] = src.policy.hit[s]
			break
		}
	}
	return &out
}

// Policy returns the current greedy policy over all 220 states.
func (t *Trainer) Policy() Policy {
	return t.merged().policy
}

// ActionValue returns the mean return of p, read from the owning partition.
func (t *Trainer) ActionValue(p Pair) (float64, error) {
	for _, part := range t.partitions {
		if part.owns(p.State.DealerCard) {
			return part.learner.ActionValue(p)
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrStateOutOfRange, p.State)
}

// Visits returns how many episodes credited p.
func (t *Trainer) Visits(p Pair) (int64, error) {
	for _, part := range t.partitions {
		if part.owns(p.State.DealerCard) {
			return part.learner.Visits(p)
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrStateOutOfRange, p.State)
}
