package interview

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmolenaar/hartstem/internal/extract"
)

// Tracker records every question the assistant has asked and derives
// the interview phase from their count. Membership is exact-string: the
// same question with different punctuation counts as a new question.
// All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	thresholds []Threshold
	catalogs   []Catalog
	asked      map[string]struct{}
	order      []string
}

// NewTracker builds a Tracker over the given phase thresholds and
// question catalogs. Nil arguments select the stock Dutch cardiology
// set. Thresholds are sorted by MinAsked.
func NewTracker(thresholds []Threshold, catalogs []Catalog) *Tracker {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if catalogs == nil {
		catalogs = DefaultCatalogs()
	}
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAsked < sorted[j].MinAsked
	})
	return &Tracker{
		thresholds: sorted,
		catalogs:   catalogs,
		asked:      make(map[string]struct{}),
	}
}

// RecordAsked adds one asked question. It reports whether the question
// was new; recording a known question is a no-op.
func (t *Tracker) RecordAsked(question string) bool {
	if question == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.asked[question]; ok {
		return false
	}
	t.asked[question] = struct{}{}
	t.order = append(t.order, question)
	return true
}

// Asked returns the asked questions in insertion order.
func (t *Tracker) Asked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// AskedCount returns how many distinct questions have been asked.
func (t *Tracker) AskedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// CurrentPhase derives the phase from the asked-question count. The
// phase index never decreases because the asked set only grows.
func (t *Tracker) CurrentPhase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phaseLocked()
}

func (t *Tracker) phaseLocked() Phase {
	count := len(t.order)
	phase := PhaseInitial
	for _, th := range t.thresholds {
		if count >= th.MinAsked {
			phase = th.Phase
		}
	}
	return phase
}

// CandidateQuestions returns the unasked questions of the current
// phase's catalog, in catalog order. When that catalog is exhausted it
// falls through to the next catalog that still has unasked questions.
func (t *Tracker) CandidateQuestions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := 0
	phase := t.phaseLocked()
	for i, cat := range t.catalogs {
		if cat.Phase == phase {
			start = i
			break
		}
	}
	for i := start; i < len(t.catalogs); i++ {
		var open []string
		for _, q := range t.catalogs[i].Questions {
			if _, done := t.asked[q]; !done {
				open = append(open, q)
			}
		}
		if len(open) > 0 {
			return open
		}
	}
	return nil
}

// Exhausted reports whether every catalog question has been asked.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cat := range t.catalogs {
		for _, q := range cat.Questions {
			if _, done := t.asked[q]; !done {
				return false
			}
		}
	}
	return true
}

// Reset clears the asked set, returning the tracker to the initial
// phase. Intended for starting a fresh anamnesis on the same session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.asked = make(map[string]struct{})
	t.order = nil
}

// BuildInstructions renders the Dutch system directive for the next
// model turn: the interviewer role, the never-repeat rules, the asked
// list so a stateless backend cannot loop, the collected patient facts
// and the candidate questions for the current phase. When the catalogs
// are exhausted it instead directs the model to wrap up with a summary.
func (t *Tracker) BuildInstructions(data *extract.PatientData) string {
	t.mu.Lock()
	asked := make([]string, len(t.order))
	copy(asked, t.order)
	phase := t.phaseLocked()
	t.mu.Unlock()

	candidates := t.CandidateQuestions()

	var b strings.Builder
	b.WriteString("Je bent een ervaren Nederlandse cardioloog die een systematische anamnese afneemt.\n\n")
	b.WriteString("BELANGRIJKE REGELS:\n")
	b.WriteString("1. Stel NOOIT dezelfde vraag twee keer\n")
	b.WriteString("2. Houd bij welke vragen je al hebt gesteld\n")
	b.WriteString("3. Stel één vraag per keer\n")
	b.WriteString("4. Wees empathisch en professioneel\n")
	b.WriteString("5. Spreek Nederlands\n\n")

	b.WriteString("REEDS GESTELDE VRAGEN (NIET HERHALEN):\n")
	if len(asked) == 0 {
		b.WriteString("(nog geen vragen gesteld)\n")
	} else {
		b.WriteString(strings.Join(asked, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nHUIDIGE FASE: %s\n", phase)

	b.WriteString("\nVERZAMELDE INFORMATIE:\n")
	fmt.Fprintf(&b, "- Symptomen: %s\n", orUnknown(strings.Join(data.Symptoms, ", ")))
	fmt.Fprintf(&b, "- Medicijnen: %s\n", orUnknown(strings.Join(data.Medications, ", ")))
	fmt.Fprintf(&b, "- Duur klachten: %s\n", orUnknown(data.Duration))

	if len(candidates) == 0 {
		b.WriteString("\nAlle voorbereide vragen zijn gesteld. Bedank de patiënt, ")
		b.WriteString("vat de verzamelde informatie kort samen en rond het gesprek af.")
		return b.String()
	}

	b.WriteString("\nVOLGENDE VRAGEN OM TE STELLEN (kies er één die je nog NIET hebt gesteld):\n")
	b.WriteString(strings.Join(candidates, "\n"))
	b.WriteString("\n")

	if len(asked) == 0 {
		b.WriteString("\nDit is het begin van het gesprek: stel uzelf kort voor en begin met de eerste vraag.\n")
	}

	b.WriteString("\nAnalyseer het antwoord van de patiënt, extraheer relevante medische informatie, ")
	b.WriteString("en stel dan de meest logische vervolgvraag die je nog NIET hebt gesteld.")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "onbekend"
	}
	return s
}
