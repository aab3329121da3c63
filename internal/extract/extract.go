// Package extract pulls structured patient facts out of Dutch
// conversation turns by keyword matching. The rules are deliberately
// shallow: a turn mentioning a keyword lands in that bucket whole, so
// the clinician reviewing the summary sees full sentences rather than
// clipped fragments.
package extract

import (
	"strings"
	"sync"
)

// PatientData is the structured record built up over an anamnesis.
// List fields are append-only and deduplicated by exact text; Duration
// and Severity keep the most recent matching turn.
type PatientData struct {
	Symptoms      []string
	Medications   []string
	FamilyHistory []string
	RiskFactors   []string
	Duration      string
	Severity      string
}

// Clone returns a deep copy safe to hand out of the owning goroutine.
func (d *PatientData) Clone() PatientData {
	out := *d
	out.Symptoms = append([]string(nil), d.Symptoms...)
	out.Medications = append([]string(nil), d.Medications...)
	out.FamilyHistory = append([]string(nil), d.FamilyHistory...)
	out.RiskFactors = append([]string(nil), d.RiskFactors...)
	return out
}

// Keywords holds the per-bucket trigger words. Matching is
// case-insensitive substring search over the whole turn.
type Keywords struct {
	Symptoms      []string
	Duration      []string
	Medications   []string
	FamilyHistory []string
	RiskFactors   []string
	Severity      Severity
}

// Severity keywords are split so the matched level is recorded rather
// than the full turn.
type Severity struct {
	High []string
	Low  []string
}

// DefaultKeywords returns the stock Dutch cardiology trigger words.
func DefaultKeywords() Keywords {
	return Keywords{
		Symptoms:      []string{"pijn", "klacht", "kortademig", "duizelig", "hartkloppingen", "moe", "zwelling"},
		Duration:      []string{"dag", "week", "maand", "jaar"},
		Medications:   []string{"medicijn", "medicatie", "tablet", "pil"},
		FamilyHistory: []string{"familie", "erfelijk", "moeder", "vader"},
		RiskFactors:   []string{"roken", "rookt", "alcohol", "diabetes", "bloeddruk", "cholesterol", "stress"},
		Severity: Severity{
			High: []string{"ernstig", "hevig"},
			Low:  []string{"mild", "licht"},
		},
	}
}

// Bucket names returned by Extract.
const (
	BucketSymptoms      = "symptoms"
	BucketDuration      = "duration"
	BucketMedications   = "medications"
	BucketFamilyHistory = "family_history"
	BucketRiskFactors   = "risk_factors"
	BucketSeverity      = "severity"
)

// Extractor applies the keyword rules to turns and accumulates the
// resulting PatientData. Safe for concurrent use.
type Extractor struct {
	kw Keywords

	mu   sync.Mutex
	data PatientData
}

// NewExtractor builds an Extractor over kw. A zero Keywords disables
// all rules; use DefaultKeywords for the stock set.
func NewExtractor(kw Keywords) *Extractor {
	return &Extractor{kw: kw}
}

// Extract runs every rule over one turn and records the matches. It
// returns the names of the buckets that matched, in rule order; an
// empty result is the normal outcome for small-talk turns.
func (e *Extractor) Extract(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	e.mu.Lock()
	defer e.mu.Unlock()

	var matched []string
	if containsAny(lower, e.kw.Symptoms) && appendUnique(&e.data.Symptoms, text) {
		matched = append(matched, BucketSymptoms)
	}
	if containsAny(lower, e.kw.Duration) {
		e.data.Duration = text
		matched = append(matched, BucketDuration)
	}
	if containsAny(lower, e.kw.Medications) && appendUnique(&e.data.Medications, text) {
		matched = append(matched, BucketMedications)
	}
	if containsAny(lower, e.kw.FamilyHistory) && appendUnique(&e.data.FamilyHistory, text) {
		matched = append(matched, BucketFamilyHistory)
	}
	if containsAny(lower, e.kw.RiskFactors) && appendUnique(&e.data.RiskFactors, text) {
		matched = append(matched, BucketRiskFactors)
	}
	switch {
	case containsAny(lower, e.kw.Severity.High):
		e.data.Severity = "ernstig"
		matched = append(matched, BucketSeverity)
	case containsAny(lower, e.kw.Severity.Low):
		e.data.Severity = "mild"
		matched = append(matched, BucketSeverity)
	}
	return matched
}

// Data returns a copy of the accumulated patient record.
func (e *Extractor) Data() PatientData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// Reset clears the accumulated record.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = PatientData{}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// appendUnique appends text unless it is already present. Reports
// whether the slice changed.
func appendUnique(list *[]string, text string) bool {
	for _, existing := range *list {
		if existing == text {
			return false
		}
	}
	*list = append(*list, text)
	return true
}
