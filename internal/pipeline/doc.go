// Package pipeline drives one collaboration run from raw prompt to finished
// project files.
//
// # Stages
//
// [Pipeline.Run] walks a fixed stage machine:
//
//	initial → refining_prompt → [debating_plan] → [scaffolding] →
//	  { coding_turn → reviewing_turn → processing_turn → [installing_deps] }* →
//	done | error
//
// The coder (w1) writes one file per call and the reviewer (w2) returns a
// verdict. APPROVED runs the install check and advances the turn;
// REVISION_NEEDED and NEEDS_CLARIFICATION send the coder back to the same
// turn; anything else ends the run.
//
// # Events
//
// Progress is reported as an [iter.Seq] of [event.Event]. The first event is
// pipeline_start and the last is always pipeline_finish, whatever happened in
// between. A fatal failure emits pipeline_error immediately before
// pipeline_finish; cancellation emits pipeline_interrupted instead.
// Breaking out of the range loop cancels the run.
//
// # Usage
//
//	p := pipeline.New(factory, pipeline.WithLogger(logger))
//	for ev := range p.Run(ctx, req) {
//	    switch e := ev.(type) {
//	    case event.FileUpdate:
//	        fmt.Println("updated", e.Filename)
//	    case event.PipelineFinish:
//	        fmt.Println(len(e.ProjectFiles), "files")
//	    }
//	}
//
// # Thread Safety
//
// A Pipeline holds no per-run state and may serve concurrent runs. Each run
// owns its [CollaborationState] and executes on the consumer's goroutine.
package pipeline
