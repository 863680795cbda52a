package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/leafshift/pkg/cache"
	"github.com/matzehuels/leafshift/pkg/convert"
	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/history"
	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/observability"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// Runner encapsulates conversion with caching and history.
// Both CLI and API use this to avoid duplicating that logic.
//
// The Runner stores no per-call state. The linac configuration is read as a
// snapshot at the start of each call, so multiple goroutines can safely use
// the same Runner while the configuration is being edited.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	Linacs  *linac.Store
	History history.Store

	// TTL is the lifetime of cached results.
	TTL time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLinacs sets the linac configuration store.
func WithLinacs(s *linac.Store) Option {
	return func(r *Runner) { r.Linacs = s }
}

// WithHistory sets the store that records conversion attempts.
func WithHistory(h history.Store) Option {
	return func(r *Runner) { r.History = h }
}

// WithTTL sets the lifetime of cached results.
func WithTTL(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.TTL = d
		}
	}
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// Without WithLinacs the factory linac configuration is used in memory.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger, opts ...Option) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    cache.TTLConversion,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Linacs == nil {
		r.Linacs = linac.NewStore(linac.Defaults(), "")
	}
	if r.History == nil {
		r.History = history.Nop{}
	}
	return r
}

// Convert converts the RT Plan record in input to the other collimator
// family. A rejected plan yields an error and no output; the attempt is
// recorded in history either way.
func (r *Runner) Convert(ctx context.Context, input []byte, opts ConvertOptions) (*Result, error) {
	start := time.Now()
	hooks := observability.Conversion()
	hooks.OnConvertStart(ctx, opts.Name, len(input))

	snapshot := r.Linacs.Snapshot()
	linacHash, err := hashLinacs(snapshot)
	if err != nil {
		return nil, err
	}

	inputHash := cache.Hash(input)
	res, err := r.convertWithCache(ctx, input, inputHash, linacHash, snapshot, opts)
	duration := time.Since(start)

	entry := history.Entry{
		InputName: opts.Name,
		InputHash: inputHash,
		Duration:  duration,
	}
	if err != nil {
		entry.Code = errs.GetCode(err)
		if entry.Code == "" {
			entry.Code = errs.ErrCodeInternal
		}
		entry.Message = errs.UserMessage(err)
		r.record(ctx, entry)
		hooks.OnConvertComplete(ctx, "", 0, 0, duration, err)
		return nil, err
	}

	res.InputHash = inputHash
	res.Duration = duration
	res.OutputName = errs.OutputName(inputName(opts.Name), res.Direction.Label())

	entry.Source = res.Direction.Source.Key()
	entry.Target = res.Direction.Target.Key()
	entry.Beams = res.Beams
	entry.ControlPoints = res.ControlPoints
	entry.OutputUID = res.OutputUID
	entry.Warnings = res.Warnings
	entry.CacheHit = res.CacheHit
	r.record(ctx, entry)

	hooks.OnConvertComplete(ctx, res.Direction.String(), res.ControlPoints, len(res.Warnings), duration, nil)
	return res, nil
}

func (r *Runner) convertWithCache(ctx context.Context, input []byte, inputHash, linacHash string, snapshot linac.Config, opts ConvertOptions) (*Result, error) {
	key := r.Keyer.ConversionKey(inputHash, linacHash)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedResult
			if err := json.Unmarshal(data, &cached); err == nil {
				if res, err := r.fromCache(cached, snapshot); err == nil {
					observability.Cache().OnCacheHit(ctx, "convert")
					r.Logger.Debug("conversion cache hit", "key", key, "uid", res.OutputUID)
					return res, nil
				}
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "convert")
	}

	plan, err := rtplan.Parse(input)
	if err != nil {
		return nil, err
	}
	converted, err := convert.New(snapshot, r.Logger, convert.WithProgress(opts.Progress)).Convert(ctx, plan)
	if err != nil {
		return nil, err
	}
	output, err := rtplan.Encode(converted.Plan)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Output:        output,
		Direction:     converted.Direction,
		Beams:         len(converted.Plan.Beams),
		ControlPoints: converted.ControlPoints,
		Warnings:      converted.Warnings,
		OutputUID:     converted.Plan.SOPInstanceUID,
	}

	data, err := json.Marshal(cachedResult{
		Output:        res.Output,
		Direction:     res.Direction,
		Beams:         res.Beams,
		ControlPoints: res.ControlPoints,
		Warnings:      res.Warnings,
		OutputUID:     res.OutputUID,
	})
	if err == nil {
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "convert", len(data))
		}
	}
	return res, nil
}

// fromCache rebuilds a result from a cached conversion. The cached plan gets
// new UIDs, so no two results share an identity.
func (r *Runner) fromCache(cached cachedResult, snapshot linac.Config) (*Result, error) {
	plan, err := rtplan.Parse(cached.Output)
	if err != nil {
		return nil, err
	}
	convert.New(snapshot, r.Logger).Reidentify(plan)
	output, err := rtplan.Encode(plan)
	if err != nil {
		return nil, err
	}
	return &Result{
		Output:        output,
		Direction:     cached.Direction,
		Beams:         cached.Beams,
		ControlPoints: cached.ControlPoints,
		Warnings:      cached.Warnings,
		OutputUID:     plan.SOPInstanceUID,
		CacheHit:      true,
	}, nil
}

// record stores e, logging failures. History never fails a conversion.
func (r *Runner) record(ctx context.Context, e history.Entry) {
	if err := r.History.Record(ctx, e); err != nil {
		r.Logger.Warn("history record failed", "error", err)
	}
}

// RecentHistory returns the most recent conversion attempts, newest first.
func (r *Runner) RecentHistory(ctx context.Context, limit int) ([]history.Entry, error) {
	return r.History.List(ctx, limit)
}

// Close releases resources held by the runner (cache and history).
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.History != nil {
		if err := r.History.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func hashLinacs(c linac.Config) (string, error) {
	data, err := linac.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize linac configuration for cache key: %w", err)
	}
	return cache.Hash(data), nil
}

// defaultInputName names outputs of records that came without a file name.
const defaultInputName = "RTPLAN.dcm"

func inputName(name string) string {
	if name == "" {
		return defaultInputName
	}
	return name
}
