// Package syntax maintains parse-derived highlighting for buffers.
//
// A Provider turns a buffer snapshot into scope-tagged byte spans. The
// tree-sitter provider keeps the previous parse tree and re-parses
// incrementally from the edits recorded since the last parse, so the cost
// of a keystroke tracks edit locality rather than file size.
//
// A Scheduler serializes parsing per buffer on its own goroutine. Requests
// carry the buffer generation observed at dispatch; when edits arrive
// faster than parses complete, pending requests are merged rather than
// queued, so at most one parse runs and at most one waits. Consumers
// compare result generations against the live buffer and drop stale ones.
//
// Parse failures and timeouts degrade to unhighlighted text. Nothing in
// this package ever blocks the editing path.
package syntax
