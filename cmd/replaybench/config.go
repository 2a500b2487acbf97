package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/replay"
)

// Config holds all benchmark configuration
type Config struct {
	// Table
	Capacity           int     `mapstructure:"capacity"`
	Lag                int     `mapstructure:"lag"`
	Alpha              float64 `mapstructure:"alpha"`
	UniformProbability float64 `mapstructure:"uniform-probability"`
	Sampler            string  `mapstructure:"sampler"`
	TraceDecay         float64 `mapstructure:"trace-decay"`
	TraceDepth         int     `mapstructure:"trace-depth"`
	Compression        string  `mapstructure:"compression"`
	MemoryLimit        int64   `mapstructure:"memory-limit"`

	// Actors
	Actors         int     `mapstructure:"actors"`
	EpisodeLength  int     `mapstructure:"episode-length"`
	ObsDim         int     `mapstructure:"obs-dim"`
	ActDim         int     `mapstructure:"act-dim"`
	StepsPerSecond float64 `mapstructure:"steps-per-second"`

	// Learner
	BatchSize int     `mapstructure:"batch-size"`
	BetaStart float64 `mapstructure:"beta-start"`
	BetaEnd   float64 `mapstructure:"beta-end"`

	// Run
	Duration       time.Duration `mapstructure:"duration"`
	ReportInterval time.Duration `mapstructure:"report-interval"`
	Seed           int64         `mapstructure:"seed"`
	MetricsAddr    string        `mapstructure:"metrics-addr"`
	LogLevel       string        `mapstructure:"log-level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Capacity:           100_000,
		Lag:                3,
		Alpha:              0.6,
		UniformProbability: 0.0,
		Sampler:            "prioritized",
		TraceDecay:         0.9,
		TraceDepth:         5,
		Compression:        "none",
		Actors:             4,
		EpisodeLength:      200,
		ObsDim:             64,
		ActDim:             4,
		BatchSize:          256,
		BetaStart:          0.4,
		BetaEnd:            1.0,
		Duration:           10 * time.Second,
		ReportInterval:     time.Second,
		Seed:               1,
		LogLevel:           "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.Actors <= 0 {
		return fmt.Errorf("actors must be positive")
	}
	if c.EpisodeLength <= 0 {
		return fmt.Errorf("episode-length must be positive")
	}
	if c.ObsDim <= 0 {
		return fmt.Errorf("obs-dim must be positive")
	}
	if c.ActDim < 0 {
		return fmt.Errorf("act-dim must not be negative")
	}
	if c.StepsPerSecond < 0 {
		return fmt.Errorf("steps-per-second must not be negative")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}
	if c.BetaStart < 0 || c.BetaEnd < 0 {
		return fmt.Errorf("beta must not be negative")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be positive")
	}
	if _, err := replay.ParseSamplerKind(c.Sampler); err != nil {
		return err
	}
	if _, err := replay.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	return nil
}

// TableOptions converts the table settings into replay options.
func (c *Config) TableOptions() ([]replay.Option, error) {
	kind, err := replay.ParseSamplerKind(c.Sampler)
	if err != nil {
		return nil, err
	}
	comp, err := replay.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	return []replay.Option{
		replay.WithLag(c.Lag),
		replay.WithAlpha(c.Alpha),
		replay.WithBeta(c.BetaStart),
		replay.WithUniformProbability(c.UniformProbability),
		replay.WithSampler(kind),
		replay.WithTraceDecay(c.TraceDecay),
		replay.WithTraceDepth(c.TraceDepth),
		replay.WithCompression(comp),
		replay.WithMemoryLimit(c.MemoryLimit),
		replay.WithSeed(uint64(c.Seed)),
	}, nil
}

// Beta anneals linearly from BetaStart to BetaEnd over the run.
func (c *Config) Beta(elapsed time.Duration) float64 {
	frac := float64(elapsed) / float64(c.Duration)
	frac = min(max(frac, 0), 1)
	return c.BetaStart + frac*(c.BetaEnd-c.BetaStart)
}

func (c *Config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log-level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
