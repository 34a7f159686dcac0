package indicator

import (
	"context"
	"fmt"
	"regexp"

	"github.com/out-of-energy/topshop/internal/config"
)

func buildCategory(rules config.TaskRules) ([]Extractor, error) {
	kw := rules.Rule(config.IndicatorKeywordHits)
	links := rules.Rule(config.IndicatorProductLinks)
	price := rules.Rule(config.IndicatorPricePatterns)
	excl := rules.Rule(config.IndicatorExclusionPenalty)

	res, err := compileAll(price.AllPatterns())
	if err != nil {
		return nil, err
	}

	return []Extractor{
		switchable(&KeywordHits{
			base:     base{config.IndicatorKeywordHits, kw.Weight},
			keywords: lowerAll(kw.AllPatterns()),
			cap:      kw.Cap,
		}, kw),
		switchable(&ProductLinks{
			base:     base{config.IndicatorProductLinks, links.Weight},
			patterns: lowerAll(links.AllPatterns()),
			cap:      links.Cap,
		}, links),
		switchable(&PricePatterns{
			base:     base{config.IndicatorPricePatterns, price.Weight},
			patterns: res,
			cap:      price.Cap,
		}, price),
		switchable(&ExclusionPenalty{
			base:     base{config.IndicatorExclusionPenalty, excl.Weight},
			keywords: lowerAll(excl.AllPatterns()),
			cap:      excl.Cap,
		}, excl),
	}, nil
}

// compileAll compiles price patterns case-insensitively.
func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", config.ErrInvalidPattern, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// KeywordHits counts distinct category keywords that occur anywhere in the
// visible text. Matching is by substring, so "dress" also matches
// "address"; the per-match weight is small enough to tolerate that.
type KeywordHits struct {
	base
	keywords []string
	cap      float64
}

// Extract implements Extractor.
func (e *KeywordHits) Extract(_ context.Context, in *Input) Signal {
	n, ev := countKeywords(in.Doc.Text, e.keywords)
	return Signal{Value: capped(n, e.weight, e.cap), Evidence: ev}
}

// ProductLinks counts anchors pointing at product or shop routes.
type ProductLinks struct {
	base
	patterns []string
	cap      float64
}

// Extract implements Extractor.
func (e *ProductLinks) Extract(_ context.Context, in *Input) Signal {
	var n int
	var ev []string
	for _, href := range in.Doc.Links {
		if _, ok := containsAny(href, e.patterns); ok {
			n++
			ev = appendEvidence(ev, href)
		}
	}
	return Signal{Value: capped(n, e.weight, e.cap), Evidence: ev}
}

// PricePatterns counts price expressions in the visible text. Matches of
// different patterns are summed, so "price: $20" counts twice.
type PricePatterns struct {
	base
	patterns []*regexp.Regexp
	cap      float64
}

// Extract implements Extractor.
func (e *PricePatterns) Extract(_ context.Context, in *Input) Signal {
	var n int
	var ev []string
	for _, re := range e.patterns {
		for _, m := range re.FindAllString(in.Doc.Text, -1) {
			n++
			ev = appendEvidence(ev, m)
		}
	}
	return Signal{Value: capped(n, e.weight, e.cap), Evidence: ev}
}

// ExclusionPenalty subtracts for keywords of other audiences and
// categories. Its value is zero or negative.
type ExclusionPenalty struct {
	base
	keywords []string
	cap      float64
}

// Extract implements Extractor.
func (e *ExclusionPenalty) Extract(_ context.Context, in *Input) Signal {
	n, ev := countKeywords(in.Doc.Text, e.keywords)
	if n == 0 {
		return Signal{}
	}
	return Signal{Value: -capped(n, e.weight, e.cap), Evidence: ev}
}

func countKeywords(text string, keywords []string) (int, []string) {
	var n int
	var ev []string
	for _, kw := range keywords {
		if _, ok := containsAny(text, []string{kw}); ok {
			n++
			ev = appendEvidence(ev, kw)
		}
	}
	return n, ev
}
