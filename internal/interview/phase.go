// Package interview drives the question side of a Dutch cardiac
// anamnesis. It tracks which questions the assistant has already asked,
// derives the interview phase from that count, and renders the model
// instructions that steer the next assistant turn.
package interview

// Phase identifies one stage of the anamnesis.
type Phase string

const (
	PhaseInitial        Phase = "initial"
	PhaseSymptoms       Phase = "symptoms"
	PhaseTriggers       Phase = "triggers"
	PhaseMedicalHistory Phase = "medical_history"
	PhaseFamilyHistory  Phase = "family_history"
	PhaseLifestyle      Phase = "lifestyle"
)

// Threshold maps an asked-question count to the phase that starts there.
type Threshold struct {
	MinAsked int
	Phase    Phase
}

// DefaultThresholds is the stock phase progression. The triggers phase
// carries catalog questions but no threshold of its own; its questions
// are reached through catalog fall-through.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinAsked: 0, Phase: PhaseInitial},
		{MinAsked: 3, Phase: PhaseSymptoms},
		{MinAsked: 6, Phase: PhaseMedicalHistory},
		{MinAsked: 9, Phase: PhaseFamilyHistory},
		{MinAsked: 12, Phase: PhaseLifestyle},
	}
}

// Catalog is the ordered question list of one phase.
type Catalog struct {
	Phase     Phase
	Questions []string
}

// DefaultCatalogs returns the stock Dutch cardiology question catalogs
// in interview order.
func DefaultCatalogs() []Catalog {
	return []Catalog{
		{Phase: PhaseInitial, Questions: []string{
			"Wat is uw belangrijkste hartklacht?",
			"Kunt u uw klachten beschrijven?",
		}},
		{Phase: PhaseSymptoms, Questions: []string{
			"Sinds wanneer heeft u deze klachten?",
			"Hoe zou u de pijn beschrijven - drukkend, stekend, of brandend?",
			"Straalt de pijn uit naar andere delen van uw lichaam?",
			"Merkt u dat de klachten samenhangen met inspanning?",
			"Heeft u ook last van kortademigheid?",
			"Ervaart u hartkloppingen of een onregelmatige hartslag?",
			"Heeft u last van duizeligheid of flauwvallen?",
		}},
		{Phase: PhaseTriggers, Questions: []string{
			"Wat maakt de klachten erger?",
			"Wat helpt om de klachten te verminderen?",
			"Merkt u verschil tussen rust en inspanning?",
			"Zijn er specifieke situaties die de klachten uitlokken?",
		}},
		{Phase: PhaseMedicalHistory, Questions: []string{
			"Heeft u eerder hartproblemen gehad?",
			"Gebruikt u momenteel medicijnen?",
			"Heeft u bekende allergieën?",
			"Rookt u of heeft u gerookt?",
			"Hoeveel alcohol gebruikt u per week?",
		}},
		{Phase: PhaseFamilyHistory, Questions: []string{
			"Zijn er hartaandoeningen bekend in uw familie?",
			"Heeft u familie met hoge bloeddruk of diabetes?",
			"Zijn er familieleden jong overleden aan hartproblemen?",
		}},
		{Phase: PhaseLifestyle, Questions: []string{
			"Hoe zou u uw conditie beschrijven?",
			"Doet u regelmatig aan sport of beweging?",
			"Hoe is uw eetpatroon?",
			"Ervaart u veel stress?",
		}},
	}
}
