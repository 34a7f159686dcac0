// Package indicator implements the signal extractors of both
// classification tasks.
//
// An Extractor reads one aspect of a page (script sources, meta tags,
// links, visible text, or well-known endpoints) and reports a numeric
// Signal. Extractors are pure functions of their Input except
// endpoint-probe, which issues HEAD requests through the Prober.
//
// Pattern lists, weights and caps come from config.TaskRules, so adding a
// keyword or an endpoint is a rule file change, not a code change.
package indicator
