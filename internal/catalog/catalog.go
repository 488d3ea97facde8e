// Package catalog holds the fixed recommendation content library. Items
// are static: the generator filters and ranks them, it never invents new
// ones. Optional natural-language rewriting happens downstream and always
// has the catalog body as its fallback.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Item is one piece of catalog content: an education article or a partner
// offer with its eligibility floor.
type Item struct {
	ID       string
	Type     models.RecommendationType
	Title    string
	Body     string
	Personas []models.Persona

	// offer-only fields
	ProductClass     string
	Partner          string
	MinMonthlyIncome decimal.Decimal
	MinCreditScore   int
}

// Matches reports whether the item targets the given persona.
func (i Item) Matches(p models.Persona) bool {
	for _, candidate := range i.Personas {
		if candidate == p {
			return true
		}
	}
	return false
}

// harmfulProductClasses is the hard blocklist. Offers in these classes are
// rejected regardless of eligibility inputs.
var harmfulProductClasses = map[string]bool{
	"payday_loan":        true,
	"title_loan":         true,
	"rent_to_own":        true,
	"high_fee_advance":   true,
	"crypto_speculation": true,
}

// IsHarmful reports whether a product class is on the blocklist.
func IsHarmful(productClass string) bool {
	return harmfulProductClasses[productClass]
}

// Education returns the education items matching a persona, in catalog order.
func Education(p models.Persona) []Item {
	return filter(educationItems, p)
}

// Offers returns the partner offers matching a persona, in catalog order.
func Offers(p models.Persona) []Item {
	return filter(offerItems, p)
}

// Lookup finds an item by id across both catalogs.
func Lookup(id string) (Item, bool) {
	for _, item := range educationItems {
		if item.ID == id {
			return item, true
		}
	}
	for _, item := range offerItems {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

func filter(items []Item, p models.Persona) []Item {
	var out []Item
	for _, item := range items {
		if item.Matches(p) {
			out = append(out, item)
		}
	}
	return out
}

var educationItems = []Item{
	{
		ID:    "edu-utilization-basics",
		Type:  models.TypeEducation,
		Title: "How credit utilization shapes your score",
		Body: "Keeping card balances under 30% of their limits is one of the fastest " +
			"ways to improve your credit standing. Paying down the card closest to its " +
			"limit first usually has the biggest effect.",
		Personas: []models.Persona{models.PersonaHighUtilization},
	},
	{
		ID:    "edu-avalanche-method",
		Type:  models.TypeEducation,
		Title: "Paying down balances with the avalanche method",
		Body: "Listing your balances by interest rate and sending extra payments to the " +
			"most expensive one saves the most money over time, while minimums keep the " +
			"rest current.",
		Personas: []models.Persona{models.PersonaHighUtilization},
	},
	{
		ID:    "edu-minimum-payment-cost",
		Type:  models.TypeEducation,
		Title: "What minimum payments really cost",
		Body: "Paying only the minimum keeps an account current but lets interest grow. " +
			"Even a small fixed amount above the minimum shortens the payoff timeline " +
			"noticeably.",
		Personas: []models.Persona{models.PersonaHighUtilization},
	},
	{
		ID:    "edu-autopay-guardrails",
		Type:  models.TypeEducation,
		Title: "Autopay without surprises",
		Body: "Setting autopay to a fixed amount above the minimum protects you from " +
			"missed due dates without draining your checking account unexpectedly.",
		Personas: []models.Persona{models.PersonaHighUtilization, models.PersonaDefault},
	},
	{
		ID:    "edu-percent-budgeting",
		Type:  models.TypeEducation,
		Title: "Budgeting by percentages when paychecks vary",
		Body: "When income changes month to month, assigning percentages instead of " +
			"fixed dollar amounts keeps your plan realistic in both strong and lean months.",
		Personas: []models.Persona{models.PersonaVariableIncome},
	},
	{
		ID:    "edu-baseline-month",
		Type:  models.TypeEducation,
		Title: "Finding your baseline month",
		Body: "Your lowest-earning recent month is a useful planning floor. Covering " +
			"essentials from that baseline means better months become savings instead of " +
			"surprises.",
		Personas: []models.Persona{models.PersonaVariableIncome},
	},
	{
		ID:    "edu-income-smoothing",
		Type:  models.TypeEducation,
		Title: "Smoothing irregular income with a buffer account",
		Body: "Routing deposits into a holding account and paying yourself a steady " +
			"amount each month turns irregular income into a predictable paycheck.",
		Personas: []models.Persona{models.PersonaVariableIncome},
	},
	{
		ID:    "edu-subscription-audit",
		Type:  models.TypeEducation,
		Title: "Running a ten-minute subscription audit",
		Body: "Listing every recurring charge and marking the ones you used in the last " +
			"month usually surfaces one or two that can go. Canceling a single unused " +
			"service is often worth hundreds a year.",
		Personas: []models.Persona{models.PersonaSubscriptionHeavy},
	},
	{
		ID:    "edu-annual-vs-monthly",
		Type:  models.TypeEducation,
		Title: "Annual plans: when they pay off",
		Body: "Annual billing is cheaper for services you are sure you will keep. For " +
			"everything else, monthly billing keeps the exit easy and the spend visible.",
		Personas: []models.Persona{models.PersonaSubscriptionHeavy},
	},
	{
		ID:    "edu-trial-tracking",
		Type:  models.TypeEducation,
		Title: "Keeping trials from becoming charges",
		Body: "Setting a calendar reminder the day you start a free trial is the " +
			"simplest way to decide on your own schedule instead of the merchant's.",
		Personas: []models.Persona{models.PersonaSubscriptionHeavy},
	},
	{
		ID:    "edu-sharing-plans",
		Type:  models.TypeEducation,
		Title: "Family and bundle plans",
		Body: "Many streaming and software subscriptions offer household plans that " +
			"cost less than two individual ones. Bundling with people you trust cuts the " +
			"recurring total without losing access.",
		Personas: []models.Persona{models.PersonaSubscriptionHeavy},
	},
	{
		ID:    "edu-emergency-fund-target",
		Type:  models.TypeEducation,
		Title: "Sizing your emergency fund",
		Body: "Three months of essential expenses is a common first target. Once you " +
			"reach it, extra savings can work harder elsewhere.",
		Personas: []models.Persona{models.PersonaSavingsBuilder, models.PersonaDefault},
	},
	{
		ID:    "edu-hysa-basics",
		Type:  models.TypeEducation,
		Title: "Making your savings balance earn more",
		Body: "High-yield savings accounts pay many times the national average rate " +
			"with the same protections. Moving an emergency fund there is low effort " +
			"and meaningful over a year.",
		Personas: []models.Persona{models.PersonaSavingsBuilder},
	},
	{
		ID:    "edu-automatic-transfers",
		Type:  models.TypeEducation,
		Title: "Automating the save-first habit",
		Body: "A transfer scheduled for payday moves saving from a decision to a " +
			"default. Even small automatic amounts compound into real progress.",
		Personas: []models.Persona{models.PersonaSavingsBuilder, models.PersonaDefault},
	},
	{
		ID:    "edu-goal-buckets",
		Type:  models.TypeEducation,
		Title: "Separating savings into goal buckets",
		Body: "Splitting savings into named buckets for travel, repairs, and the " +
			"emergency fund makes progress visible and protects long-term money from " +
			"short-term wants.",
		Personas: []models.Persona{models.PersonaSavingsBuilder},
	},
	{
		ID:    "edu-first-budget",
		Type:  models.TypeEducation,
		Title: "A simple first budget",
		Body: "Tracking just three numbers, money in, essentials, and everything " +
			"else, beats a complicated budget you will not keep. Refine once the habit " +
			"sticks.",
		Personas: []models.Persona{models.PersonaDefault},
	},
	{
		ID:    "edu-credit-score-explainer",
		Type:  models.TypeEducation,
		Title: "What actually moves a credit score",
		Body: "Payment history and utilization drive most of your score. On-time " +
			"payments and modest balances matter far more than the number of cards " +
			"you hold.",
		Personas: []models.Persona{models.PersonaDefault, models.PersonaHighUtilization},
	},
}

var offerItems = []Item{
	{
		ID:    "offer-balance-transfer",
		Type:  models.TypePartnerOffer,
		Title: "0% intro APR balance transfer card",
		Body: "Move an existing balance to a card with a 0% introductory rate and " +
			"pay it down without new interest for the intro period.",
		Personas:         []models.Persona{models.PersonaHighUtilization},
		ProductClass:     "balance_transfer_card",
		Partner:          "Meridian Card Services",
		MinMonthlyIncome: decimal.NewFromInt(2000),
		MinCreditScore:   640,
	},
	{
		ID:    "offer-debt-consolidation",
		Type:  models.TypePartnerOffer,
		Title: "Fixed-rate debt consolidation loan",
		Body: "Combine several card balances into one fixed monthly payment at a " +
			"lower rate than typical card APRs.",
		Personas:         []models.Persona{models.PersonaHighUtilization},
		ProductClass:     "consolidation_loan",
		Partner:          "Northstar Lending",
		MinMonthlyIncome: decimal.NewFromInt(2500),
		MinCreditScore:   660,
	},
	{
		ID:    "offer-credit-builder",
		Type:  models.TypePartnerOffer,
		Title: "Credit builder account",
		Body: "Build payment history with small fixed deposits that are reported to " +
			"all three bureaus and returned to you at the end of the term.",
		Personas:     []models.Persona{models.PersonaHighUtilization, models.PersonaDefault},
		ProductClass: "credit_builder",
		Partner:      "Foundation Financial",
	},
	{
		ID:    "offer-flex-savings",
		Type:  models.TypePartnerOffer,
		Title: "No-minimum flexible savings account",
		Body: "A savings account with no minimum balance and instant transfers, " +
			"built for uneven income months.",
		Personas:     []models.Persona{models.PersonaVariableIncome, models.PersonaDefault},
		ProductClass: "savings_account",
		Partner:      "Harbor Bank",
	},
	{
		ID:    "offer-subscription-manager",
		Type:  models.TypePartnerOffer,
		Title: "Subscription tracking service",
		Body: "See every recurring charge in one place, with one-tap cancellation " +
			"for services you no longer use.",
		Personas:     []models.Persona{models.PersonaSubscriptionHeavy},
		ProductClass: "subscription_manager",
		Partner:      "TrimList",
	},
	{
		ID:    "offer-hysa",
		Type:  models.TypePartnerOffer,
		Title: "High-yield savings account",
		Body: "Earn a rate well above the national average on your emergency fund, " +
			"with no fees and FDIC insurance.",
		Personas:         []models.Persona{models.PersonaSavingsBuilder, models.PersonaVariableIncome},
		ProductClass:     "high_yield_savings",
		Partner:          "Summit Savings",
		MinMonthlyIncome: decimal.NewFromInt(1000),
	},
	{
		ID:    "offer-cd-ladder",
		Type:  models.TypePartnerOffer,
		Title: "Certificate of deposit ladder",
		Body: "Lock in higher fixed rates on savings you will not need for six to " +
			"eighteen months, with staggered maturity dates.",
		Personas:         []models.Persona{models.PersonaSavingsBuilder},
		ProductClass:     "certificate_of_deposit",
		Partner:          "Summit Savings",
		MinMonthlyIncome: decimal.NewFromInt(1500),
		MinCreditScore:   600,
	},
	{
		ID:    "offer-rewards-checking",
		Type:  models.TypePartnerOffer,
		Title: "Rewards checking account",
		Body: "A checking account with no monthly fee and cash back on everyday " +
			"debit purchases.",
		Personas:     []models.Persona{models.PersonaDefault, models.PersonaSubscriptionHeavy},
		ProductClass: "checking_account",
		Partner:      "Harbor Bank",
	},
}
