package funnel

import "fmt"

// State is a snapshot of the funnel. CurrentStep is always the first step of
// Steps() missing from CompletedSteps, or StepComplete once all are done.
type State struct {
	CurrentStep    Step
	CompletedSteps []Step
	EmailDraft     string
	Submitting     bool
}

// InitialState is what a freshly opened funnel looks like.
func InitialState() State {
	return State{CurrentStep: StepSteam, CompletedSteps: []Step{}}
}

func (s State) IsCompleted(step Step) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// Progress is the fraction shown by the progress bar.
func (s State) Progress() float64 {
	return float64(len(s.CompletedSteps)) / TotalSteps
}

func (s State) ProgressLabel() string {
	return fmt.Sprintf("%d/%d complete", len(s.CompletedSteps), TotalSteps)
}
