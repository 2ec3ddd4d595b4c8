package funnel

// Step is one stage of the quest funnel.
type Step string

const (
	StepSteam       Step = "steam"
	StepKickstarter Step = "kickstarter"
	StepEmail       Step = "email"
	StepComplete    Step = "complete"
)

// TotalSteps is the number of completable steps; StepComplete is terminal and not counted.
const TotalSteps = 3

const (
	SteamURL       = "https://store.steampowered.com/app/fruity-tales"
	KickstarterURL = "https://kickstarter.com/projects/deltaquest/fruity-tales"
)

var canonicalSteps = [TotalSteps]Step{StepSteam, StepKickstarter, StepEmail}

// Steps returns the completable steps in funnel order.
func Steps() []Step {
	return append([]Step(nil), canonicalSteps[:]...)
}

// Valid reports whether s is a known step, including StepComplete.
func (s Step) Valid() bool {
	switch s {
	case StepSteam, StepKickstarter, StepEmail, StepComplete:
		return true
	}
	return false
}

func (s Step) index() int {
	for i, c := range canonicalSteps {
		if c == s {
			return i
		}
	}
	return -1
}

// Title is the heading the modal shows for the step.
func (s Step) Title() string {
	switch s {
	case StepSteam:
		return "Wishlist on Steam"
	case StepKickstarter:
		return "Back Our Kickstarter"
	case StepEmail:
		return "Join the quest log"
	case StepComplete:
		return "Quest complete!"
	}
	return ""
}

// StepURL returns the external page a self-reported step sends the player to.
func StepURL(s Step) (string, bool) {
	switch s {
	case StepSteam:
		return SteamURL, true
	case StepKickstarter:
		return KickstarterURL, true
	}
	return "", false
}
