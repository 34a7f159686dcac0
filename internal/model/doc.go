// Package model defines the core data structures used throughout topshop.
//
// This package contains the following main types:
//   - Target: a normalized domain to classify
//   - FetchResult: the outcome of retrieving a page or probing an endpoint
//   - IndicatorResult and ClassificationResult: scored task output
//   - TargetReport: both task results for one target, built by the pipeline
//   - Record: the tuple persisted by the record store
//
// Models live in their own package so that fetcher, indicator, classifier,
// pipeline and database can share them without import cycles.
package model
