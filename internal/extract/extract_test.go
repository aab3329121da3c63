package extract_test

import (
	"reflect"
	"testing"

	"github.com/jmolenaar/hartstem/internal/extract"
)

func newExtractor() *extract.Extractor {
	return extract.NewExtractor(extract.DefaultKeywords())
}

func TestExtract_SymptomKeyword_AppendsWholeTurn(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	turn := "Ik heb al een tijdje pijn op de borst"
	got := e.Extract(turn)
	if !reflect.DeepEqual(got, []string{extract.BucketSymptoms}) {
		t.Errorf("buckets = %v; want [symptoms]", got)
	}

	data := e.Data()
	if len(data.Symptoms) != 1 || data.Symptoms[0] != turn {
		t.Errorf("Symptoms = %v; want the full turn", data.Symptoms)
	}
}

func TestExtract_CaseInsensitive(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	if got := e.Extract("PIJN in mijn borst"); len(got) == 0 {
		t.Error("uppercase keyword should still match")
	}
}

func TestExtract_DuplicateTurn_NotAppendedTwice(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	turn := "De pijn is drukkend"
	e.Extract(turn)
	if got := e.Extract(turn); len(got) != 0 {
		t.Errorf("second identical turn matched buckets %v; want none", got)
	}
	if data := e.Data(); len(data.Symptoms) != 1 {
		t.Errorf("Symptoms = %v; want one entry", data.Symptoms)
	}
}

func TestExtract_Duration_LastWriteWins(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	e.Extract("Sinds een week ongeveer")
	e.Extract("Nee toch al drie maanden")

	if got := e.Data().Duration; got != "Nee toch al drie maanden" {
		t.Errorf("Duration = %q; want the later turn", got)
	}
}

func TestExtract_OneTurnCanFillMultipleBuckets(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	got := e.Extract("Ik heb sinds een maand pijn en gebruik medicijnen tegen hoge bloeddruk")

	want := []string{
		extract.BucketSymptoms,
		extract.BucketDuration,
		extract.BucketMedications,
		extract.BucketRiskFactors,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buckets = %v; want %v", got, want)
	}
}

func TestExtract_Severity(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	e.Extract("De klachten zijn best hevig")
	if got := e.Data().Severity; got != "ernstig" {
		t.Errorf("Severity = %q; want ernstig", got)
	}

	e.Extract("Vandaag is het maar mild")
	if got := e.Data().Severity; got != "mild" {
		t.Errorf("Severity = %q; want mild after later turn", got)
	}
}

func TestExtract_NoMatch_IsNoOp(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	if got := e.Extract("Goedemorgen dokter"); got != nil {
		t.Errorf("buckets = %v; want nil", got)
	}
	if data := e.Data(); !reflect.DeepEqual(data, extract.PatientData{}) {
		t.Errorf("data = %+v; want zero value", data)
	}
}

func TestData_ReturnsCopy(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	e.Extract("Ik heb pijn")

	data := e.Data()
	data.Symptoms[0] = "aangepast"
	if got := e.Data().Symptoms[0]; got != "Ik heb pijn" {
		t.Errorf("internal state mutated through returned copy: %q", got)
	}
}

func TestReset_ClearsRecord(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	e.Extract("Ik heb al een jaar pijn")
	e.Reset()
	if data := e.Data(); !reflect.DeepEqual(data, extract.PatientData{}) {
		t.Errorf("data after Reset = %+v; want zero value", data)
	}
}
