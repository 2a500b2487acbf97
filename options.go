package replay

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/hupe1980/replay/internal/compress"
)

// SamplerKind selects the sampling strategy of a table.
type SamplerKind int

const (
	// SamplerPrioritized draws records proportionally to priority^alpha.
	SamplerPrioritized SamplerKind = iota
	// SamplerUniform ignores priorities.
	SamplerUniform
	// SamplerSequence is prioritized sampling plus backward priority
	// propagation along n-step links at insert time.
	SamplerSequence
)

// String returns the name of the sampler kind.
func (k SamplerKind) String() string {
	switch k {
	case SamplerPrioritized:
		return "prioritized"
	case SamplerUniform:
		return "uniform"
	case SamplerSequence:
		return "sequence"
	default:
		return fmt.Sprintf("SamplerKind(%d)", int(k))
	}
}

// ParseSamplerKind parses "uniform", "prioritized" or "sequence".
func ParseSamplerKind(s string) (SamplerKind, error) {
	switch s {
	case "uniform":
		return SamplerUniform, nil
	case "prioritized", "per", "":
		return SamplerPrioritized, nil
	case "sequence", "pser":
		return SamplerSequence, nil
	default:
		return 0, fmt.Errorf("%w: unknown sampler %q", ErrInvalidArgument, s)
	}
}

// Compression selects how observation and action vectors are stored.
type Compression = compress.Type

const (
	// CompressionNone stores vectors as raw little-endian float32.
	CompressionNone = compress.None
	// CompressionLZ4 stores vectors as LZ4 blocks. Fast, moderate ratio.
	CompressionLZ4 = compress.LZ4
	// CompressionZSTD stores vectors as Zstandard frames. Slower, better ratio.
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	c, err := compress.ParseType(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return c, nil
}

type options struct {
	lag                int
	alpha              float64
	beta               float64
	uniformProbability float64
	sampler            SamplerKind
	traceDecay         float64
	traceDepth         int
	defaultPriority    float64
	src                rand.Source
	compression        Compression
	memoryLimit        int64
	consistencyChecks  bool
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures a Table.
type Option func(*options)

// WithLag sets the n-step offset: each record is linked to the record
// inserted lag steps after it. Default 1.
func WithLag(lag int) Option {
	return func(o *options) {
		o.lag = lag
	}
}

// WithAlpha sets the priority sharpening exponent. Leaves of the priority
// index hold priority^alpha. Default 1.0; 0 makes prioritized sampling uniform.
func WithAlpha(alpha float64) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// WithBeta sets the importance-weight exponent used by Sample when no
// per-call beta is given. Default 0.4.
func WithBeta(beta float64) Option {
	return func(o *options) {
		o.beta = beta
	}
}

// WithUniformProbability sets the fraction of prioritized draws that are
// taken uniformly instead, giving every record a floor probability of
// u/len. Default 0 (pure prioritized replay).
func WithUniformProbability(u float64) Option {
	return func(o *options) {
		o.uniformProbability = u
	}
}

// WithSampler selects the sampling strategy. Default SamplerPrioritized.
func WithSampler(kind SamplerKind) Option {
	return func(o *options) {
		o.sampler = kind
	}
}

// WithTraceDecay sets the per-hop decay of priority propagation.
// Only used by SamplerSequence. Default 0.9.
func WithTraceDecay(decay float64) Option {
	return func(o *options) {
		o.traceDecay = decay
	}
}

// WithTraceDepth sets how many ancestors priority propagation may reach.
// Only used by SamplerSequence. Default 5.
func WithTraceDepth(depth int) Option {
	return func(o *options) {
		o.traceDepth = depth
	}
}

// WithDefaultPriority sets the priority of the very first record.
// Later records are primed with the largest priority seen so far. Default 1.0.
func WithDefaultPriority(p float64) Option {
	return func(o *options) {
		o.defaultPriority = p
	}
}

// WithSeed makes sampling deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
}

// WithRandSource sets the random source used for sampling.
func WithRandSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// WithCompression stores observation and action vectors compressed.
// Blocks that do not shrink are kept raw.
//
// Example:
//
//	t, _ := replay.New(100_000, replay.WithCompression(replay.CompressionZSTD))
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMemoryLimit caps the payload bytes held by the table. An Add that
// would exceed the limit fails with ErrMemoryLimitExceeded. 0 disables
// the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithConsistencyChecks runs Check after every mutating call and returns
// its error. Intended for tests and debugging; it makes every call O(capacity).
func WithConsistencyChecks(enabled bool) Option {
	return func(o *options) {
		o.consistencyChecks = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &replay.BasicMetricsCollector{}
//	t, _ := replay.New(1024, replay.WithMetricsCollector(metrics))
//	// ... use t ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := replay.NewJSONLogger(slog.LevelInfo)
//	t, _ := replay.New(1024, replay.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		lag:              1,
		alpha:            1.0,
		beta:             0.4,
		sampler:          SamplerPrioritized,
		traceDecay:       0.9,
		traceDepth:       5,
		defaultPriority:  1.0,
		compression:      CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.src == nil {
		o.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return o
}

func (o *options) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
	}

	switch {
	case o.lag < 1:
		return invalid("lag must be at least 1, got %d", o.lag)
	case !finite(o.alpha) || o.alpha < 0:
		return invalid("alpha must be a finite non-negative number, got %v", o.alpha)
	case !finite(o.beta) || o.beta < 0:
		return invalid("beta must be a finite non-negative number, got %v", o.beta)
	case !(o.uniformProbability >= 0 && o.uniformProbability <= 1):
		return invalid("uniform probability must be in [0, 1], got %v", o.uniformProbability)
	case o.sampler < SamplerPrioritized || o.sampler > SamplerSequence:
		return invalid("unknown sampler %v", o.sampler)
	case !(o.traceDecay > 0 && o.traceDecay <= 1):
		return invalid("trace decay must be in (0, 1], got %v", o.traceDecay)
	case o.traceDepth < 0:
		return invalid("trace depth must be non-negative, got %d", o.traceDepth)
	case !finite(o.defaultPriority) || o.defaultPriority <= 0:
		return invalid("default priority must be positive and finite, got %v", o.defaultPriority)
	case o.memoryLimit < 0:
		return invalid("memory limit must be non-negative, got %d", o.memoryLimit)
	}

	switch o.compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return invalid("unknown compression %v", o.compression)
	}
	return nil
}

type addOptions struct {
	priority    float64
	hasPriority bool
	linkFrom    []uint64
	hasLink     bool
	noLag       bool
}

// AddOption configures a single Add call.
type AddOption func(*addOptions)

// WithPriority sets the initial priority of the added record instead of
// the running maximum.
func WithPriority(p float64) AddOption {
	return func(o *addOptions) {
		o.priority = p
		o.hasPriority = true
	}
}

// LinkFrom links the given predecessors to the added record instead of the
// record lag steps back. Producers that interleave several trajectories on
// one table use it to keep each trajectory's links apart; passing several
// EIDs closes out a trajectory the way a terminal step does. The first EID
// is the record's trajectory predecessor for priority propagation. The lag
// queue is left untouched. Evicted predecessors are silently not linked.
func LinkFrom(eids ...EID) AddOption {
	return func(o *addOptions) {
		o.linkFrom = o.linkFrom[:0]
		for _, eid := range eids {
			if !slices.Contains(o.linkFrom, uint64(eid)) {
				o.linkFrom = append(o.linkFrom, uint64(eid))
			}
		}
		o.hasLink = true
	}
}

// WithoutLag adds the record outside the lag queue: it neither links a
// queued predecessor nor waits in the queue for a successor. Combined with
// LinkFrom on later steps it lets a producer manage its own links.
func WithoutLag() AddOption {
	return func(o *addOptions) {
		o.noLag = true
	}
}

type sampleOptions struct {
	beta    float64
	hasBeta bool
}

// SampleOption configures a single Sample call.
type SampleOption func(*sampleOptions)

// WithSampleBeta overrides the importance-weight exponent for one call.
// Callers usually anneal beta towards 1 over training.
func WithSampleBeta(beta float64) SampleOption {
	return func(o *sampleOptions) {
		o.beta = beta
		o.hasBeta = true
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
