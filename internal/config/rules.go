package config

import (
	"fmt"
	"regexp"
)

// Aggregation strategy names accepted in the rule file.
const (
	// StrategyMean is the weighted arithmetic mean of indicator values.
	StrategyMean = "mean"
	// StrategyAdditive sums signed indicator contributions and clamps to [0,1].
	StrategyAdditive = "additive"
)

// Default decision thresholds. A verdict is positive only when the
// confidence is strictly greater than the threshold.
const (
	DefaultPlatformThreshold = 0.5
	DefaultCategoryThreshold = 0.6
)

// Platform indicator names.
const (
	IndicatorScriptOrigin  = "script-origin"
	IndicatorMetaMarker    = "meta-marker"
	IndicatorLinkPattern   = "link-pattern"
	IndicatorFooterText    = "footer-text"
	IndicatorEndpointProbe = "endpoint-probe"
)

// Category indicator names.
const (
	IndicatorKeywordHits      = "keyword-hits"
	IndicatorProductLinks     = "product-links"
	IndicatorPricePatterns    = "price-patterns"
	IndicatorExclusionPenalty = "exclusion-penalty"
)

// IndicatorRule parameterizes one indicator extractor.
//
// For the platform task, Weight is the indicator's share in the weighted
// mean. For the category task, Weight is the contribution of one match and
// Cap bounds the total contribution of the indicator.
type IndicatorRule struct {
	// Disabled keeps the indicator in the task but pins its value to 0.
	Disabled bool `yaml:"disabled,omitempty"`

	// Weight is the mean weight or the per-match contribution.
	Weight float64 `yaml:"weight,omitempty"`

	// Cap bounds the contribution of additive indicators.
	Cap float64 `yaml:"cap,omitempty"`

	// Divisor is the number of matches at which a ratio indicator
	// saturates at 1.0. Used by link-pattern.
	Divisor float64 `yaml:"divisor,omitempty"`

	// Patterns replaces the built-in pattern list when set.
	Patterns []string `yaml:"patterns,omitempty"`

	// Extend appends to the pattern list instead of replacing it.
	Extend []string `yaml:"extend,omitempty"`

	// Statuses are the HTTP statuses that count as "endpoint exists".
	// Used by endpoint-probe.
	Statuses []int `yaml:"statuses,omitempty"`
}

// AllPatterns returns Patterns followed by Extend.
func (r IndicatorRule) AllPatterns() []string {
	out := make([]string, 0, len(r.Patterns)+len(r.Extend))
	out = append(out, r.Patterns...)
	out = append(out, r.Extend...)
	return out
}

// TaskRules holds the rules of one classification task.
type TaskRules struct {
	// Threshold is the decision threshold. Nil keeps the default.
	Threshold *float64 `yaml:"threshold,omitempty"`

	// Strategy is the aggregation strategy: mean or additive.
	Strategy string `yaml:"strategy,omitempty"`

	// Indicators maps indicator names to their parameters.
	Indicators map[string]IndicatorRule `yaml:"indicators,omitempty"`
}

// ThresholdOr returns the configured threshold or def when unset.
func (t TaskRules) ThresholdOr(def float64) float64 {
	if t.Threshold == nil {
		return def
	}
	return *t.Threshold
}

// Rule returns the rule for the named indicator.
func (t TaskRules) Rule(name string) IndicatorRule {
	return t.Indicators[name]
}

// DefaultFile returns the built-in rules with no site overrides.
func DefaultFile() *File {
	return &File{
		Platform: DefaultPlatformRules(),
		Category: DefaultCategoryRules(),
		Sites:    make(map[string]SiteConfig),
	}
}

// DefaultPlatformRules returns the built-in platform detection rules.
// Each of the five indicators carries equal weight.
func DefaultPlatformRules() TaskRules {
	th := DefaultPlatformThreshold
	return TaskRules{
		Threshold: &th,
		Strategy:  StrategyMean,
		Indicators: map[string]IndicatorRule{
			IndicatorScriptOrigin: {
				Weight: 0.2,
				Patterns: []string{
					"shopify.com",
					"cdn.shopify.com",
					"shopify.assets",
					"shopify.js",
					"shopify.min.js",
				},
			},
			IndicatorMetaMarker: {
				Weight:   0.2,
				Patterns: []string{"shopify", "shopify:", "shopify-theme"},
			},
			IndicatorLinkPattern: {
				Weight:  0.2,
				Divisor: 3,
				Patterns: []string{
					"/admin",
					"/cart",
					"/products",
					"/collections",
					"/pages",
					"/blogs",
				},
			},
			IndicatorFooterText: {
				Weight: 0.2,
				Patterns: []string{
					"powered by shopify",
					"shopify theme",
					"shopify store",
					"shopify checkout",
					"shopify cart",
				},
			},
			IndicatorEndpointProbe: {
				Weight: 0.2,
				Patterns: []string{
					"/admin",
					"/admin/api",
					"/apps",
					"/cart.js",
					"/products.json",
					"/collections.json",
				},
				Statuses: []int{200, 401, 403},
			},
		},
	}
}

// DefaultCategoryRules returns the built-in women's fashion rules.
func DefaultCategoryRules() TaskRules {
	th := DefaultCategoryThreshold
	return TaskRules{
		Threshold: &th,
		Strategy:  StrategyAdditive,
		Indicators: map[string]IndicatorRule{
			IndicatorKeywordHits: {
				Weight:   0.1,
				Cap:      0.5,
				Patterns: defaultFashionKeywords(),
			},
			IndicatorProductLinks: {
				Weight: 0.05,
				Cap:    0.2,
				Patterns: []string{
					"/product",
					"/products",
					"/item",
					"/items",
					"/buy",
					"/shop",
				},
			},
			IndicatorPricePatterns: {
				Weight: 0.02,
				Cap:    0.1,
				Patterns: []string{
					`\$\d+`,
					`\d+\s*dollars`,
					`\d+\s*usd`,
					`price:\s*\$\d+`,
					`from\s*\$\d+`,
				},
			},
			IndicatorExclusionPenalty: {
				Weight:   0.15,
				Cap:      0.4,
				Patterns: defaultExclusionKeywords(),
			},
		},
	}
}

func defaultFashionKeywords() []string {
	return []string{
		// garments
		"dress", "dresses", "skirt", "skirts", "blouse", "blouses",
		"pants", "jeans", "shirt", "shirts", "sweater", "sweaters",
		"jacket", "jackets", "coat", "coats", "suit", "suits",
		"t-shirt", "tshirt", "tank top", "tank tops", "cardigan",
		"hoodie", "hoodies", "leggings", "shorts", "jumpsuit",
		// audience
		"women", "womens", "woman", "ladies", "lady", "girls",
		"feminine", "female", "her", "she", "miss", "mrs",
		// categories
		"fashion", "clothing", "apparel", "wear", "outfit",
		"style", "trendy", "trend", "boutique", "designer",
		"maxi dress", "mini dress", "cocktail dress", "evening dress",
		"wedding dress", "bridesmaid", "maternity", "plus size",
		"petite", "tall", "curve", "juniors", "misses",
		// accessories
		"handbag", "handbags", "purse", "purses", "wallet",
		"jewelry", "necklace", "earrings", "bracelet", "ring",
		"scarf", "scarves", "belt", "belts", "sunglasses",
		"shoes", "boots", "heels", "flats", "sandals",
		// beauty
		"makeup", "cosmetics", "beauty", "skincare", "perfume",
		"fragrance", "nail polish", "lipstick", "mascara",
	}
}

func defaultExclusionKeywords() []string {
	return []string{
		"men", "mens", "man", "male", "boys", "boy", "guy", "guys",
		"children", "kids", "baby", "babies", "toddler",
		"electronics", "gadgets", "computers", "phones",
		"furniture", "home", "kitchen", "garden",
		"sports", "fitness", "gym", "athletic",
		"automotive", "cars", "motorcycle",
		"books", "music", "movies", "games",
	}
}

// Merge overlays the non-zero fields of other onto t.
// Indicator rules are merged field by field so that a rule file can change
// one weight without restating the pattern list.
func (t *TaskRules) Merge(other TaskRules) {
	if other.Threshold != nil {
		th := *other.Threshold
		t.Threshold = &th
	}
	if other.Strategy != "" {
		t.Strategy = other.Strategy
	}
	if len(other.Indicators) == 0 {
		return
	}
	if t.Indicators == nil {
		t.Indicators = make(map[string]IndicatorRule, len(other.Indicators))
	}
	for name, o := range other.Indicators {
		r := t.Indicators[name]
		if o.Disabled {
			r.Disabled = true
		}
		if o.Weight != 0 {
			r.Weight = o.Weight
		}
		if o.Cap != 0 {
			r.Cap = o.Cap
		}
		if o.Divisor != 0 {
			r.Divisor = o.Divisor
		}
		if len(o.Patterns) > 0 {
			r.Patterns = append([]string(nil), o.Patterns...)
		}
		if len(o.Extend) > 0 {
			r.Extend = append(r.Extend, o.Extend...)
		}
		if len(o.Statuses) > 0 {
			r.Statuses = append([]int(nil), o.Statuses...)
		}
		t.Indicators[name] = r
	}
}

// Validate checks thresholds, strategies, weights and price patterns.
func (cf *File) Validate() error {
	for _, tr := range []TaskRules{cf.Platform, cf.Category} {
		if err := tr.validate(); err != nil {
			return err
		}
	}
	price := cf.Category.Rule(IndicatorPricePatterns)
	for _, p := range price.AllPatterns() {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p, err)
		}
	}
	return nil
}

func (t TaskRules) validate() error {
	if t.Threshold != nil && (*t.Threshold < 0 || *t.Threshold > 1) {
		return ErrInvalidThreshold
	}
	switch t.Strategy {
	case "", StrategyMean, StrategyAdditive:
	default:
		return ErrInvalidStrategy
	}
	for _, r := range t.Indicators {
		if r.Weight < 0 || r.Cap < 0 || r.Divisor < 0 {
			return ErrInvalidWeight
		}
	}
	return nil
}
