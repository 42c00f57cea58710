package session

// State is the position of a session in the assessment flow.
type State int

const (
	// Idle: no current verdict.
	Idle State = iota
	// Predicted: a verdict is displayed, no explanation yet.
	Predicted
	// Explained: verdict plus explanation and suggestion are displayed.
	Explained
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Predicted:
		return "predicted"
	case Explained:
		return "explained"
	default:
		return "unknown"
	}
}
