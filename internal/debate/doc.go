// Package debate runs a structured planning debate between two agents
// before any code is written.
//
// A debate is seeded with a moderator message stating the task. Debater A
// (the proposer) and Debater B (the critiquer) then alternate over a shared
// transcript for a fixed number of rounds, after which a third agent, the
// summarizer, compresses the transcript into a structured [Summary].
//
// # Session Lifecycle
//
// A debate [Session] progresses through three states:
//
//   - Pending: the moderator message is the only entry
//   - Active: at least one debater has spoken
//   - Resolved: a summary (parsed or fallback) has been attached
//
// # Failure Handling
//
// A transport failure during a debater turn ends the exchange early; the
// summarizer still runs over whatever transcript exists. A summarizer that
// fails or returns malformed output yields [FallbackSummary], which always
// requires resolution. Only cancellation is returned as an error.
//
// # Usage
//
//	result, err := debate.Run(ctx, runner, debate.Input{
//		Topic:            refinedPrompt,
//		DebaterA:         a,
//		DebaterB:         b,
//		Summarizer:       s,
//		MaxTurnsPerAgent: 2,
//	}, emit)
//
// # Thread Safety
//
// Session is safe for concurrent use. All state mutations are protected
// by an internal mutex.
package debate
