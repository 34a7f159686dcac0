// Package config provides configuration structures and utilities for topshop.
//
// Config carries the runtime options (timeouts, politeness delay, retry
// budget, batch size, report format, record store location). File is the
// optional YAML rule file: per-indicator weights, caps and pattern lists
// for both classification tasks, decision thresholds, aggregation strategy
// and per-site request overrides.
//
// Design decision: the built-in rules are ordinary data returned by
// DefaultFile. A rule file is merged onto them field by field, so that a
// single weight can be tuned without copying the whole keyword list.
package config
