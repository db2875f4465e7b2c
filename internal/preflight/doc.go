// Package preflight runs environment checks before ingestion and serving.
//
// The checks cover:
//   - the source directory (present and listable)
//   - write access to the data directory
//   - free disk space for the document table (minimum 100MB)
//   - the open file limit
//   - the document table (present and loadable)
//   - the ingestion lock (free or held)
//
// Use the Checker type to run all checks:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Paths{...})
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
