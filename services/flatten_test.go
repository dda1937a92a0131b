package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
)

const testHomeID = "https://openalex.org/I2799468983"

func newTestFlattener() *Flattener {
	cfg := &config.Config{
		HomeInstitutionID: testHomeID,
		IDPrefix:          "https://openalex.org/",
		ConceptMinScore:   0.5,
	}
	return NewFlattener(cfg, NewFieldNormalizer(zap.NewNop()))
}

func strPtr(s string) *string   { return &s }
func i64Ptr(i int64) *int64     { return &i }
func f64Ptr(f float64) *float64 { return &f }

func TestNormalizeID(t *testing.T) {
	f := newTestFlattener()

	assert.Equal(t, "https://openalex.org/W123", f.NormalizeID("W123"))
	assert.Equal(t, "https://openalex.org/W123", f.NormalizeID("https://openalex.org/W123"))
	assert.Equal(t, "https://openalex.org/W123", f.NormalizeID(f.NormalizeID("W123")))
	assert.Equal(t, "", f.NormalizeID("   "))
}

func TestHasHomeAuthor(t *testing.T) {
	f := newTestFlattener()

	assert.False(t, f.HasHomeAuthor(nil))
	assert.False(t, f.HasHomeAuthor([]Authorship{
		{Institutions: []Institution{{ID: "https://openalex.org/I1"}}},
	}))
	assert.True(t, f.HasHomeAuthor([]Authorship{
		{Institutions: []Institution{{ID: "https://openalex.org/I1"}}},
		{Institutions: []Institution{{ID: "https://openalex.org/I2"}, {ID: testHomeID}}},
	}))
}

func TestFactsDefaults(t *testing.T) {
	f := newTestFlattener()

	facts := f.Facts(&models.Publication{OpenalexID: "W1", PublicationDate: "not a date"})

	assert.Equal(t, "https://openalex.org/W1", facts.PaperID)
	assert.Equal(t, 0, facts.Year)
	assert.Equal(t, 0, facts.Month)
	assert.Equal(t, int64(0), facts.Citations)
	assert.Equal(t, "Unknown Journal", facts.Journal)
	assert.Equal(t, "Unknown", facts.Quartile)
	assert.Equal(t, 0.0, facts.ImpactFactor)
	assert.False(t, facts.OpenAccess)
}

func TestFactsParsesDate(t *testing.T) {
	f := newTestFlattener()

	facts := f.Facts(&models.Publication{OpenalexID: "W1", PublicationDate: "2021-03-15"})
	assert.Equal(t, 2021, facts.Year)
	assert.Equal(t, 3, facts.Month)

	// lenient formats
	facts = f.Facts(&models.Publication{OpenalexID: "W1", PublicationDate: "March 15, 2021"})
	assert.Equal(t, 2021, facts.Year)
	assert.Equal(t, 3, facts.Month)
}

func TestAuthorRowsCarryPaperFacts(t *testing.T) {
	f := newTestFlattener()
	pub := &models.Publication{
		OpenalexID:      "W7",
		PublicationDate: "2022-01-01",
		JournalName:     strPtr("Oncology"),
		Quartile:        strPtr("Q1"),
		Citations:       i64Ptr(10),
		ImpactFactor:    f64Ptr(3.2),
		OpenAccess:      `{"is_oa": true}`,
		Authorships:     `[{"author":{"id":"https://openalex.org/A9","display_name":"Jane Doe"},"raw_author_position":"first","raw_is_corresponding":true,"institutions":[{"id":"` + testHomeID + `","display_name":"King Hussein Cancer Center","country_code":"JO"}]}]`,
	}

	rows := f.AuthorRows(pub)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "https://openalex.org/W7", row.PaperID)
	assert.Equal(t, "Jane Doe", row.AuthorName)
	assert.Equal(t, "first", row.Position)
	assert.True(t, row.IsCorresponding)
	assert.True(t, row.HomeInstitution)
	assert.Equal(t, int64(10), row.Citations)
	assert.Equal(t, "Oncology", row.Journal)
	assert.Equal(t, "Q1", row.Quartile)
	assert.Equal(t, 2022, row.Year)
	assert.True(t, row.OpenAccess)
}

func TestAuthorRowsRequireHomeAuthor(t *testing.T) {
	f := newTestFlattener()
	pub := &models.Publication{
		OpenalexID:  "W2",
		Authorships: `[{"author":{"id":"A1","display_name":"External Only"},"institutions":[{"id":"https://openalex.org/I1","display_name":"Elsewhere","country_code":"DE"}]}]`,
	}

	assert.Nil(t, f.AuthorRows(pub))
}

func TestAuthorRowsEmptyColumn(t *testing.T) {
	f := newTestFlattener()

	assert.Nil(t, f.AuthorRows(&models.Publication{OpenalexID: "W1", Authorships: "null"}))
	assert.Nil(t, f.AuthorRows(&models.Publication{OpenalexID: "W1", Authorships: "[broken"}))
	assert.Nil(t, f.AuthorRows(&models.Publication{OpenalexID: "W1"}))
}

func TestInstitutionRows(t *testing.T) {
	f := newTestFlattener()
	pub := &models.Publication{
		OpenalexID:      "W3",
		PublicationDate: "2020-06-01",
		Authorships: `[
			{"author":{"id":"A1","display_name":"One"},"institutions":[
				{"id":"` + testHomeID + `","display_name":"King Hussein Cancer Center","country_code":"JO"},
				{"id":"https://openalex.org/I55","display_name":"Partner University","country_code":""},
				{"id":"","display_name":""}
			]}
		]`,
	}

	rows := f.InstitutionRows(pub)
	require.Len(t, rows, 1)

	// home institution and the fully empty entry are gone
	assert.Equal(t, "https://openalex.org/I55", rows[0].InstitutionID)
	assert.Equal(t, "Partner University", rows[0].InstitutionName)
	assert.Equal(t, "Unknown", rows[0].CountryCode)
	assert.Equal(t, 2020, rows[0].Year)
}

func TestConceptRowsKeepSubThreshold(t *testing.T) {
	f := newTestFlattener()
	pub := &models.Publication{
		OpenalexID:      "W4",
		PublicationDate: "2019-01-01",
		Concepts:        `[{"id":"C1","display_name":"Oncology","score":0.9},{"id":"C2","display_name":"Minor","score":0.1}]`,
	}

	rows := f.ConceptRows(pub)
	require.Len(t, rows, 2)
	assert.Equal(t, "C2", rows[1].ConceptID)
	assert.InDelta(t, 0.1, rows[1].Score, 1e-9)
}

func TestSummaryNormalizesNestedFields(t *testing.T) {
	f := newTestFlattener()
	pub := &models.Publication{
		OpenalexID:      "W5",
		Title:           "A Study",
		PublicationDate: "2021-11-02",
		Type:            "article",
		Authorships:     `[{"author":{"id":"A1","display_name":"Jane Doe"}},{"author":{"id":"A2","display_name":"John Roe"}}]`,
		Concepts:        `[{"id":"C1","display_name":"Oncology","score":0.8}]`,
		MeshTerms:       `totally broken`,
	}

	s := f.Summary(pub)

	assert.Equal(t, "https://openalex.org/W5", s.PaperID)
	assert.Equal(t, 2021, s.PublicationYear)
	assert.Equal(t, 11, s.PublicationMonth)
	assert.Equal(t, "Unknown Journal", s.Journal)
	assert.Equal(t, "Jane Doe, John Roe", s.AuthorsText)
	assert.Equal(t, "Oncology", s.ConceptsText)
	assert.Equal(t, "", s.MeshTermsText)

	// defekte Spalten werden als leere Liste re-serialisiert, nie als NULL
	assert.JSONEq(t, "[]", string(s.MeshJSON))
	assert.JSONEq(t, `[{"id":"C1","display_name":"Oncology","score":0.8}]`, string(s.ConceptsJSON))
}

func TestPositionRank(t *testing.T) {
	assert.Equal(t, 1, positionRank("first"))
	assert.Equal(t, 2, positionRank("middle"))
	assert.Equal(t, 3, positionRank("last"))
	assert.Equal(t, 4, positionRank(""))
	assert.Equal(t, 4, positionRank("unknown"))
}
