package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/content"
	"github.com/out-of-energy/topshop/internal/fetcher"
	"github.com/out-of-energy/topshop/internal/indicator"
	"github.com/out-of-energy/topshop/internal/model"
	"github.com/out-of-energy/topshop/internal/scoring"
)

// ErrUnsupportedKind is recorded on results for a task kind that has no
// rules.
var ErrUnsupportedKind = errors.New("unsupported task kind")

// taskRules is the compiled form of one task kind's rules.
type taskRules struct {
	extractors []indicator.Extractor
	scorer     scoring.Scorer
}

// Classifier evaluates targets. It is safe for concurrent use.
type Classifier struct {
	fetcher  indicator.Prober
	logger   *slog.Logger
	deadline time.Duration
	now      func() time.Time
	kinds    map[model.TaskKind]taskRules
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithDeadline sets the overall time budget of one task.
// Zero means no deadline beyond the caller's context.
func WithDeadline(d time.Duration) Option {
	return func(c *Classifier) {
		c.deadline = d
	}
}

// WithClock replaces the clock used for CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// New compiles the rules of both task kinds. f fetches pages and issues
// probes; *fetcher.Fetcher satisfies it.
func New(f indicator.Prober, rules *config.File, opts ...Option) (*Classifier, error) {
	if rules == nil {
		rules = config.DefaultFile()
	}
	c := &Classifier{
		fetcher: f,
		logger:  slog.Default(),
		now:     time.Now,
		kinds:   make(map[model.TaskKind]taskRules, 2),
	}
	for _, opt := range opts {
		opt(c)
	}

	for kind, tr := range map[model.TaskKind]config.TaskRules{
		model.TaskKindPlatform: rules.Platform,
		model.TaskKindCategory: rules.Category,
	} {
		extractors, err := indicator.Build(kind, tr)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s indicators: %w", kind, err)
		}
		scorer, err := scoring.NewScorer(kind, tr)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s scorer: %w", kind, err)
		}
		c.kinds[kind] = taskRules{extractors: extractors, scorer: scorer}
	}
	return c, nil
}

// Classify fetches raw and evaluates it for kind.
func (c *Classifier) Classify(ctx context.Context, raw string, kind model.TaskKind) model.ClassificationResult {
	t, err := model.NewTarget(raw)
	if err != nil {
		return c.fail(newTask(raw, kind), model.FetchErrorOther, err, model.FetchResult{})
	}
	return c.ClassifyTarget(ctx, t, kind)
}

// ClassifyTarget evaluates an already normalized target.
func (c *Classifier) ClassifyTarget(ctx context.Context, target model.Target, kind model.TaskKind) model.ClassificationResult {
	tk := newTask(target.URL(), kind)
	rules, ok := c.kinds[kind]
	if !ok {
		return c.fail(tk, model.FetchErrorOther, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind), model.FetchResult{})
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	res := c.fetcher.Fetch(ctx, target.URL(), model.FetchModeFull)
	if !res.OK() {
		c.logger.Debug("fetch failed",
			"target", target.String(),
			"kind", kind.String(),
			"error_kind", string(res.ErrorKind),
			"error", res.ErrorString(),
		)
		return c.fail(tk, res.ErrorKind, res.Err, res)
	}

	tk.fetched(res, content.Parse(res.Body, res.FinalURL))
	return c.score(ctx, tk, rules, target.URL())
}

// ClassifyContent evaluates body as if it had been fetched from raw.
// Endpoint probes still go to the network through the classifier's
// fetcher. The same body always yields the same result apart from what
// the probes answer.
func (c *Classifier) ClassifyContent(ctx context.Context, raw string, kind model.TaskKind, body []byte) model.ClassificationResult {
	t, err := model.NewTarget(raw)
	if err != nil {
		return c.fail(newTask(raw, kind), model.FetchErrorOther, err, model.FetchResult{})
	}
	tk := newTask(t.URL(), kind)
	rules, ok := c.kinds[kind]
	if !ok {
		return c.fail(tk, model.FetchErrorOther, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind), model.FetchResult{})
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	res := model.FetchResult{URL: t.URL(), FinalURL: t.URL(), ErrorKind: model.FetchErrorNone, Body: body}
	tk.fetched(res, content.Parse(body, t.URL()))
	return c.score(ctx, tk, rules, t.URL())
}

func (c *Classifier) score(ctx context.Context, tk *task, rules taskRules, targetURL string) model.ClassificationResult {
	in := &indicator.Input{Doc: tk.doc, URL: targetURL, Prober: c.fetcher}
	indicators := indicator.Run(ctx, rules.extractors, in)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Endpoint checks cut short by the task deadline leave the result incomplete.
		c.logger.Debug("task deadline exceeded while scoring",
			"target", targetURL,
			"kind", tk.kind.String(),
		)
		return c.fail(tk, model.FetchErrorTimeout, fetcher.ErrTimeout, tk.fetch)
	}
	confidence, verdict := rules.scorer.Score(indicators)

	result := tk.scored(c.now())
	result.Confidence = confidence
	result.Verdict = verdict
	result.Threshold = rules.scorer.Threshold
	result.Indicators = indicators

	c.logger.Debug("classified",
		"target", targetURL,
		"kind", tk.kind.String(),
		"confidence", confidence,
		"verdict", verdict,
		"degraded", tk.doc.Degraded,
	)
	return result
}

func (c *Classifier) fail(tk *task, kind model.FetchErrorKind, err error, res model.FetchResult) model.ClassificationResult {
	if rules, ok := c.kinds[tk.kind]; ok {
		tk.threshold = rules.scorer.Threshold
	}
	result := tk.scored(c.now())
	result.Indicators = []model.IndicatorResult{}
	result.ErrorKind = kind
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Error = string(kind)
	}
	result.StatusCode = res.StatusCode
	result.FinalURL = res.FinalURL
	return result
}

func (c *Classifier) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.deadline)
}
