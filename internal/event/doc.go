// Package event defines the typed events a collaboration run emits and the
// sinks that consume them.
//
// Every event is a concrete struct implementing [Event]. Marshalling an event
// to JSON yields its data payload with camelCase keys; the wire type comes
// from [Event.EventType] and travels separately, as the SSE event name or as
// the "type" field of a transcript [Record]. [Decode] reverses the mapping.
//
// # Sinks
//
//   - [Bus]: synchronous fan-out to any number of handlers, used by the CLI
//     to feed the console printer, the [Recorder] and the [NATSMirror] from
//     one event stream.
//   - [Recorder]: JSONL transcript writer; [TranscriptReader] reads it back
//     for replay.
//   - [NATSMirror]: publishes each event to <prefix>.<run id>.<type>.
//
// # Usage
//
//	bus := event.NewBus(logger)
//	rec := event.NewRecorder(f, runID)
//	bus.SubscribeAll(rec.Handle)
//	for ev := range pipeline.Run(ctx, req) {
//	    bus.Publish(ev)
//	}
package event
