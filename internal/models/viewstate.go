package models

// Screen is one of the two pages the app can show.
type Screen string

const (
	ScreenInput   Screen = "input"
	ScreenResults Screen = "results"
)

// ViewState is everything one browser session needs to render a page.
// Results is only valid together with a non-nil Record.
type ViewState struct {
	Screen Screen
	Record *NutritionRecord

	// Error is a one-shot message shown on the next render of the Input screen.
	Error string

	// CaptureToken binds an Input form to the current capture cycle.
	// It is emptied when an analysis succeeds and replaced on reset.
	CaptureToken string
}

// NewViewState returns the initial Input state for a fresh capture cycle.
func NewViewState(captureToken string) ViewState {
	return ViewState{
		Screen:       ScreenInput,
		CaptureToken: captureToken,
	}
}

// EventKind identifies a ViewState transition.
type EventKind int

const (
	EventAnalysisSucceeded EventKind = iota + 1
	EventAnalysisFailed
	EventReset
	EventRendered
)

// Event drives Transition. Only the fields relevant to Kind are read.
type Event struct {
	Kind         EventKind
	Record       *NutritionRecord // EventAnalysisSucceeded
	Message      string           // EventAnalysisFailed
	CaptureToken string           // EventReset
}

// Succeeded builds the event for a finished analysis.
func Succeeded(rec NutritionRecord) Event {
	return Event{Kind: EventAnalysisSucceeded, Record: &rec}
}

// Failed builds the event for an analysis that produced no record.
func Failed(message string) Event {
	return Event{Kind: EventAnalysisFailed, Message: message}
}

// Reset builds the "new analysis" event with the next capture token.
func Reset(captureToken string) Event {
	return Event{Kind: EventReset, CaptureToken: captureToken}
}

// Rendered marks that the current state has been shown to the user.
func Rendered() Event {
	return Event{Kind: EventRendered}
}

// Transition computes the next state. It does not modify s.
func Transition(s ViewState, e Event) ViewState {
	next := s
	switch e.Kind {
	case EventAnalysisSucceeded:
		// one image per trip into Results
		if s.Screen != ScreenInput {
			break
		}
		if e.Record == nil {
			next.Error = "Analysis failed. Please try again."
			break
		}
		rec := *e.Record
		next.Screen = ScreenResults
		next.Record = &rec
		next.Error = ""
		next.CaptureToken = ""
	case EventAnalysisFailed:
		if s.Screen != ScreenInput {
			break
		}
		next.Record = nil
		next.Error = e.Message
	case EventReset:
		next = NewViewState(e.CaptureToken)
	case EventRendered:
		next.Error = ""
	}
	return settle(next)
}

// Settle enforces the Results-needs-a-record invariant on s.
func Settle(s ViewState) ViewState {
	return settle(s)
}

func settle(s ViewState) ViewState {
	switch s.Screen {
	case ScreenResults:
		if s.Record == nil {
			s.Screen = ScreenInput
		}
	case ScreenInput:
		s.Record = nil
	default:
		s.Screen = ScreenInput
		s.Record = nil
	}
	return s
}

// Accepts reports whether an upload submitted with captureToken may be
// analyzed in state s.
func Accepts(s ViewState, captureToken string) bool {
	return s.Screen == ScreenInput && s.CaptureToken != "" && s.CaptureToken == captureToken
}
