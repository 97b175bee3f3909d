// Package task tracks long-running background work. The Registry owns the
// lifecycle of every submitted unit of work — running, completed, cleared —
// and exposes a barrier that waits for all in-flight entries and returns the
// accumulated results. The Scheduler layers category-scoped adaptive rate
// limiting and per-category metrics on top, so image and speech submissions
// pace independently against their MiniMax quotas.
package task
