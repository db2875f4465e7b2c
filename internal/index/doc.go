// Package index builds the document table from a source directory and
// derives the per-field term statistics that retrieval scores against.
//
// Only the table is persisted. Statistics are recomputed from it on demand
// (DeriveStatistics), so a change to the scoring formula never requires
// re-ingesting.
package index
