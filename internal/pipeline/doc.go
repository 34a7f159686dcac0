// Package pipeline runs the classification steps for one target and
// fans a batch of targets out over a bounded worker pool.
//
// A target passes through PlatformStep, CategoryStep and, when a record
// store is configured, StoreStep. Each step receives the TargetReport
// accumulated so far.
//
// Design decision: steps are an interface rather than a fixed function
// so that the CLI can assemble only the steps a run needs (for example
// --kind category without platform detection, or --no-db without the
// store) while logging and error handling stay in one place.
//
// BatchProcessor uses errgroup with SetLimit. Targets are independent; a
// failure of one target never cancels the others.
package pipeline
