package domain

// Capability names the handler responsible for a turn. The set is closed;
// callers switch over it exhaustively.
type Capability int

const (
	CapabilityChat Capability = iota
	CapabilityGreeting
	CapabilityPreference
	CapabilityRecipe
	CapabilityStep
	CapabilityFeedback
)

// Capabilities lists every capability in declaration order.
var Capabilities = []Capability{
	CapabilityChat,
	CapabilityGreeting,
	CapabilityPreference,
	CapabilityRecipe,
	CapabilityStep,
	CapabilityFeedback,
}

// String returns the capability's routing key.
func (c Capability) String() string {
	switch c {
	case CapabilityChat:
		return "chit_chat"
	case CapabilityGreeting:
		return "greeting"
	case CapabilityPreference:
		return "preference"
	case CapabilityRecipe:
		return "recipe"
	case CapabilityStep:
		return "step_walker"
	case CapabilityFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}
