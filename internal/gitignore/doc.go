// Package gitignore matches directory entry names against gitignore-style
// patterns.
//
// Only the subset that makes sense for a flat directory is supported:
// shell globs (*, ?, [a-z]), negation (!keep.txt), directory-only
// patterns (drafts/), comments and a leading "/" (which is ignored, as
// every name is already relative to the directory). Later patterns win.
//
//	m := gitignore.New()
//	m.AddPattern("*.log")
//	m.AddPattern("!important.log")
//
//	if m.Match("error.log", false) {
//	    // skip it
//	}
package gitignore
