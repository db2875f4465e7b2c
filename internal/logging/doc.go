// Package logging configures log/slog for amanrag.
//
// Commands log JSON records to a size-rotated file under ~/.amanrag/logs/
// and, unless the process speaks MCP over stdio, mirror them to stderr.
// Without --debug the level is "info" and the file is still written so
// skipped sources from past ingestion runs can be inspected.
package logging
