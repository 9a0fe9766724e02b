package briefing

import "errors"

// Common errors for the briefing pipeline.
var (
	// ErrSectionComplete is the natural-end signal from the script
	// service: the dynamic section list has run out of content. It is not
	// a failure.
	ErrSectionComplete = errors.New("section list complete")

	// ErrScriptGeneration wraps a fatal script service failure.
	ErrScriptGeneration = errors.New("script generation failed")
	// ErrSynthesis wraps a fatal speech synthesis failure.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrPlayback wraps a failure to start a decoded buffer.
	ErrPlayback = errors.New("playback failed")

	// ErrPipelineStopped indicates an operation after the pipeline
	// reached its terminal stopped state.
	ErrPipelineStopped = errors.New("pipeline is stopped")
	// ErrAlreadyStarted indicates a second Start on the same pipeline.
	ErrAlreadyStarted = errors.New("pipeline already started")

	// ErrPendingSlotOccupied indicates a second section finished
	// preparation before the slot was consumed. Under the one-step
	// lookahead contract this is a defect, never a valid state.
	ErrPendingSlotOccupied = errors.New("pending slot already occupied")

	// ErrIndexRegression indicates an attempt to play a section at or
	// before the current index.
	ErrIndexRegression = errors.New("section index must advance")
)
