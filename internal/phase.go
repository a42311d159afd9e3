package internal

var transitions = map[Phase][]Phase{
	PhaseLobby:       {PhaseSetting},
	PhaseSetting:     {PhaseGame},
	PhaseGame:        {PhaseDiscussion, PhaseResult},
	PhaseDiscussion:  {PhaseResult},
	PhaseResult:      {PhaseSetting, PhaseFinalResult},
	PhaseFinalResult: {PhaseLobby},
}

func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}
