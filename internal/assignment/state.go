package assignment

// State is a step of the assignment decision for one work item.
type State string

const (
	StateCreated          State = "CREATED"
	StateSkillsExtracted  State = "SKILLS_EXTRACTED"
	StateCandidatesRanked State = "CANDIDATES_RANKED"
	StateNoCandidates     State = "NO_CANDIDATES"
	StateOracleValidated  State = "ORACLE_VALIDATED"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
	StateAssigned         State = "ASSIGNED"
	StateEscalated        State = "ESCALATED"
)

var transitions = map[State][]State{
	StateCreated:          {StateSkillsExtracted},
	StateSkillsExtracted:  {StateCandidatesRanked},
	StateCandidatesRanked: {StateNoCandidates, StateOracleValidated, StateEscalated},
	StateNoCandidates:     {StateEscalated},
	StateOracleValidated:  {StateApproved, StateRejected},
	StateApproved:         {StateAssigned},
	StateRejected:         {StateEscalated},
}

// Terminal reports whether s ends the decision.
func (s State) Terminal() bool {
	return s == StateAssigned || s == StateEscalated
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine records the visited states.
type machine struct {
	history []State
}

func newMachine() *machine {
	return &machine{history: []State{StateCreated}}
}

func (m *machine) current() State {
	return m.history[len(m.history)-1]
}

func (m *machine) advance(to State) error {
	from := m.current()
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	m.history = append(m.history, to)
	return nil
}
