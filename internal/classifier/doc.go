// Package classifier runs one classification task: fetch a target,
// parse it, evaluate the indicators of one task kind and decide.
//
// A task moves through three states: pending, fetched and scored. A
// failed fetch jumps from pending straight to scored with confidence 0,
// a negative verdict, no indicators and the error recorded. Classify
// never returns an error; every outcome is a model.ClassificationResult.
//
// Design decision: the classifier owns the overall per-task deadline
// (fetch attempts, backoff, rate-limit waits and one round of probes), so
// a single slow storefront cannot stall a batch worker indefinitely.
package classifier
