package models

import "time"

// Persona is one of the five mutually exclusive behavioral classifications,
// ordered by rule priority (1 = highest).
type Persona int

const (
	PersonaHighUtilization   Persona = 1
	PersonaVariableIncome    Persona = 2
	PersonaSubscriptionHeavy Persona = 3
	PersonaSavingsBuilder    Persona = 4
	PersonaDefault           Persona = 5
)

var personaNames = map[Persona]string{
	PersonaHighUtilization:   "High Utilization",
	PersonaVariableIncome:    "Variable Income Budgeter",
	PersonaSubscriptionHeavy: "Subscription-Heavy",
	PersonaSavingsBuilder:    "Savings Builder",
	PersonaDefault:           "Getting Started",
}

// Name returns the display name for the persona.
func (p Persona) Name() string {
	if n, ok := personaNames[p]; ok {
		return n
	}
	return "Unknown"
}

// Valid reports whether p is one of the five defined personas.
func (p Persona) Valid() bool {
	_, ok := personaNames[p]
	return ok
}

// PersonaAssignment is the single active classification for a user.
// Replaced, never edited: swapping in a new assignment archives the old one
// to persona history in the same transaction.
type PersonaAssignment struct {
	ID            int64          `json:"id"`
	UserID        string         `json:"user_id"`
	Persona       Persona        `json:"persona"`
	PersonaName   string         `json:"persona_name"`
	Rationale     string         `json:"rationale"`
	ConditionsMet []string       `json:"conditions_met"`
	PriorityRank  int            `json:"priority_rank"`
	Signals       SignalSnapshot `json:"signals"`
	AssignedAt    time.Time      `json:"assigned_at"`
}

// PersonaHistoryEntry is one archived assignment in the append-only ledger.
type PersonaHistoryEntry struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Persona    Persona   `json:"persona"`
	Rationale  string    `json:"rationale"`
	AssignedAt time.Time `json:"assigned_at"`
	ArchivedAt time.Time `json:"archived_at"`
}
