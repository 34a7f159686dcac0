package indicator

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/fetcher"
	"github.com/out-of-energy/topshop/internal/model"
)

// maxConcurrentProbes bounds the probes in flight for one target.
const maxConcurrentProbes = 6

func buildPlatform(rules config.TaskRules) []Extractor {
	var out []Extractor
	add := func(name string, mk func(config.IndicatorRule) Extractor) {
		r := rules.Rule(name)
		out = append(out, switchable(mk(r), r))
	}

	add(config.IndicatorScriptOrigin, func(r config.IndicatorRule) Extractor {
		return &ScriptOrigin{base: base{config.IndicatorScriptOrigin, r.Weight}, patterns: lowerAll(r.AllPatterns())}
	})
	add(config.IndicatorMetaMarker, func(r config.IndicatorRule) Extractor {
		return &MetaMarker{base: base{config.IndicatorMetaMarker, r.Weight}, patterns: lowerAll(r.AllPatterns())}
	})
	add(config.IndicatorLinkPattern, func(r config.IndicatorRule) Extractor {
		divisor := r.Divisor
		if divisor <= 0 {
			divisor = 3
		}
		return &LinkPattern{base: base{config.IndicatorLinkPattern, r.Weight}, patterns: lowerAll(r.AllPatterns()), divisor: divisor}
	})
	add(config.IndicatorFooterText, func(r config.IndicatorRule) Extractor {
		return &FooterText{base: base{config.IndicatorFooterText, r.Weight}, phrases: lowerAll(r.AllPatterns())}
	})
	add(config.IndicatorEndpointProbe, func(r config.IndicatorRule) Extractor {
		statuses := r.Statuses
		if len(statuses) == 0 {
			statuses = []int{200, 401, 403}
		}
		return &EndpointProbe{base: base{config.IndicatorEndpointProbe, r.Weight}, endpoints: r.AllPatterns(), statuses: statuses}
	})
	return out
}

// ScriptOrigin fires when a script is loaded from the platform's CDN or
// carries the platform's asset name.
type ScriptOrigin struct {
	base
	patterns []string
}

// Extract implements Extractor.
func (e *ScriptOrigin) Extract(_ context.Context, in *Input) Signal {
	for _, src := range in.Doc.Scripts {
		if p, ok := containsAny(src, e.patterns); ok {
			return Signal{Value: 1, Evidence: []string{p + " in " + src}}
		}
	}
	return Signal{}
}

// MetaMarker fires when any meta tag's name, property or content carries
// a platform marker.
type MetaMarker struct {
	base
	patterns []string
}

// Extract implements Extractor.
func (e *MetaMarker) Extract(_ context.Context, in *Input) Signal {
	for _, m := range in.Doc.Meta {
		for _, field := range []string{m.Content, m.Name, m.Property} {
			if p, ok := containsAny(field, e.patterns); ok {
				return Signal{Value: 1, Evidence: []string{p + " in " + field}}
			}
		}
	}
	return Signal{}
}

// LinkPattern counts anchors pointing at platform routes. The value
// saturates at 1.0 once divisor links match.
type LinkPattern struct {
	base
	patterns []string
	divisor  float64
}

// Extract implements Extractor.
func (e *LinkPattern) Extract(_ context.Context, in *Input) Signal {
	var n int
	var ev []string
	for _, href := range in.Doc.Links {
		if _, ok := containsAny(href, e.patterns); ok {
			n++
			ev = appendEvidence(ev, href)
		}
	}
	return Signal{Value: min(float64(n)/e.divisor, 1), Evidence: ev}
}

// FooterText fires when the visible text carries a "powered by" phrase.
type FooterText struct {
	base
	phrases []string
}

// Extract implements Extractor.
func (e *FooterText) Extract(_ context.Context, in *Input) Signal {
	if p, ok := containsAny(in.Doc.Text, e.phrases); ok {
		return Signal{Value: 1, Evidence: []string{p}}
	}
	return Signal{}
}

// EndpointProbe fires when any well-known platform endpoint exists on the
// target host. Probes run concurrently; the first hit cancels the rest.
// A failed probe means "does not exist".
type EndpointProbe struct {
	base
	endpoints []string
	statuses  []int
}

// errEndpointFound stops the probe group on the first hit.
var errEndpointFound = errors.New("endpoint found")

// Extract implements Extractor.
func (e *EndpointProbe) Extract(ctx context.Context, in *Input) Signal {
	if in.Prober == nil || in.URL == "" {
		return Signal{Err: ErrNoProber}
	}
	root := strings.TrimRight(probeRoot(in.URL), "/")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	found := make(chan string, 1)
	for _, endpoint := range e.endpoints {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := in.Prober.Fetch(gctx, root+endpoint, model.FetchModeProbe)
			if !fetcher.Exists(res, e.statuses) {
				return nil
			}
			select {
			case found <- endpoint:
			default:
			}
			return errEndpointFound
		})
	}
	_ = g.Wait() //nolint:errcheck // the only error is errEndpointFound

	select {
	case endpoint := <-found:
		return Signal{Value: 1, Evidence: []string{endpoint}}
	default:
		return Signal{}
	}
}

// probeRoot returns scheme://host of rawURL; endpoints are absolute paths.
func probeRoot(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return rawURL
	}
	if j := strings.IndexByte(rawURL[i+3:], '/'); j >= 0 {
		return rawURL[:i+3+j]
	}
	return rawURL
}

// containsAny returns the first pattern that is a substring of s.
func containsAny(s string, patterns []string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return p, true
		}
	}
	return "", false
}

// lowerAll lowercases patterns and drops duplicates, keeping order.
func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(s)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
