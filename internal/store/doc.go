// Package store holds the document table: the only durable artifact of an
// ingestion run, together with the tokenizer that both the index builder
// and the retrieval engine must share.
//
// The on-disk format is a single JSON object:
//
//	{ "docs": [ { "id": "notes.txt#1", "title": "notes.txt", "body": "..." } ] }
//
// Readers ignore fields they do not know. A table file whose name ends in
// ".zst" holds the same JSON compressed with zstd.
package store
