package models

import "time"

// RecommendationType distinguishes educational content from partner offers.
type RecommendationType string

const (
	TypeEducation    RecommendationType = "education"
	TypePartnerOffer RecommendationType = "partner_offer"
)

// RecommendationStatus is the review lifecycle. Only an external reviewing
// actor moves a recommendation out of pending.
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusApproved RecommendationStatus = "approved"
	StatusRejected RecommendationStatus = "rejected"
)

// Disclaimer is the fixed regulatory text attached to every stored
// recommendation and acknowledged at consent-grant time.
const Disclaimer = "This is educational information, not financial advice. " +
	"Consider consulting a licensed financial advisor before making financial decisions."

// Recommendation is one guardrail-checked content item for a user.
// Never persisted without its DecisionTrace.
type Recommendation struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Type       RecommendationType   `json:"type"`
	CatalogID  string               `json:"catalog_id"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	Rationale  string               `json:"rationale"`
	Disclaimer string               `json:"disclaimer"`
	Status     RecommendationStatus `json:"status"`
	TraceID    string               `json:"trace_id"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Guardrail check names, in execution order.
const (
	CheckConsent     = "consent"
	CheckEligibility = "eligibility"
	CheckTone        = "tone"
	CheckDisclaimer  = "disclaimer"
)

// GuardrailResult is the recorded outcome of a single guardrail check.
type GuardrailResult struct {
	Check       string    `json:"check"`
	Passed      bool      `json:"passed"`
	Score       *float64  `json:"score,omitempty"`
	Explanation string    `json:"explanation"`
	CheckedAt   time.Time `json:"checked_at"`
}

// PersonaTrace captures how the classification was reached.
type PersonaTrace struct {
	Persona       Persona  `json:"persona"`
	PersonaName   string   `json:"persona_name"`
	PriorityRank  int      `json:"priority_rank"`
	ConditionsMet []string `json:"conditions_met"`
	Rationale     string   `json:"rationale"`
}

// DecisionTrace is the immutable audit record behind one recommendation.
// Written exactly once, never mutated.
type DecisionTrace struct {
	ID               string            `json:"id"`
	RecommendationID string            `json:"recommendation_id"`
	UserID           string            `json:"user_id"`
	Signals          SignalSnapshot    `json:"signals"`
	Persona          PersonaTrace      `json:"persona"`
	Guardrails       []GuardrailResult `json:"guardrails"`
	GenerationMs     int64             `json:"generation_ms"`
	EnrichmentUsed   bool              `json:"enrichment_used"`
	CreatedAt        time.Time         `json:"created_at"`
}
