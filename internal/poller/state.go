package poller

// State is the poller's on/off switch.
type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// Label is the caption of the toggle control: the action it will perform.
func (s State) Label() string {
	if s == Polling {
		return "Durdur"
	}
	return "Başlat"
}
