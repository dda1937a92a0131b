package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(&config.Config{ConceptMinScore: 0.5})
}

func homeRow(paperID, authorID, name, position string) AuthorRow {
	return AuthorRow{
		PaperFacts:      PaperFacts{PaperID: paperID, Year: 2021, Journal: "Oncology", Quartile: "Q1"},
		AuthorID:        authorID,
		AuthorName:      name,
		Position:        position,
		HomeInstitution: true,
	}
}

func TestKHCCAuthorsFiltersAndOrders(t *testing.T) {
	agg := newTestAggregator()

	rows := []AuthorRow{
		homeRow("W2", "A3", "Cara", "last"),
		homeRow("W1", "A2", "Bianca", "middle"),
		homeRow("W1", "A1", "Alice", "first"),
		{PaperFacts: PaperFacts{PaperID: "W1"}, AuthorID: "A9", AuthorName: "External", HomeInstitution: false},
	}

	got := agg.KHCCAuthors(rows)
	require.Len(t, got, 3)

	// paper_id ascending, then position rank first < middle < last
	assert.Equal(t, "Alice", got[0].AuthorName)
	assert.Equal(t, "Bianca", got[1].AuthorName)
	assert.Equal(t, "Cara", got[2].AuthorName)
	for i, row := range got {
		assert.Equal(t, uint(i+1), row.ID)
	}
}

func TestKHCCAuthorsDeterministicIDs(t *testing.T) {
	agg := newTestAggregator()
	rows := []AuthorRow{
		homeRow("W2", "A1", "Alice", "first"),
		homeRow("W1", "A2", "Bianca", "first"),
		homeRow("W1", "A3", "Cara", "middle"),
	}

	first := agg.KHCCAuthors(rows)
	second := agg.KHCCAuthors(rows)
	assert.Equal(t, first, second)
}

func TestKHCCAuthorsDedupesPaperAuthor(t *testing.T) {
	agg := newTestAggregator()
	rows := []AuthorRow{
		homeRow("W1", "A1", "Alice", "first"),
		homeRow("W1", "A1", "Alice", "middle"),
	}

	got := agg.KHCCAuthors(rows)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].AuthorPosition)
}

func TestKHCCAuthorsDedupSurvivorOrderIndependent(t *testing.T) {
	agg := newTestAggregator()

	plain := homeRow("W1", "A1", "Alice", "first")
	corresponding := homeRow("W1", "A1", "Alice", "first")
	corresponding.IsCorresponding = true

	for _, rows := range [][]AuthorRow{
		{plain, corresponding},
		{corresponding, plain},
	} {
		got := agg.KHCCAuthors(rows)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsCorresponding)
	}
}

func TestKHCCAuthorsEmptyAuthorIDsStayDistinct(t *testing.T) {
	agg := newTestAggregator()
	rows := []AuthorRow{
		homeRow("W1", "", "Alice", "first"),
		homeRow("W1", "", "Bianca", "middle"),
	}

	got := agg.KHCCAuthors(rows)
	assert.Len(t, got, 2)
}

func TestJournalMetrics(t *testing.T) {
	agg := newTestAggregator()
	summaries := []models.PaperSummary{
		{PaperID: "W1", Journal: "Oncology", Quartile: "Q1", ImpactFactor: 3.2, Citations: 10, OpenAccess: true, PublicationYear: 2020},
		{PaperID: "W2", Journal: "Oncology", Quartile: "Q1", ImpactFactor: 3.2, Citations: 20, PublicationYear: 2022},
		{PaperID: "W3", Journal: "Unknown Journal", Quartile: "Unknown", PublicationYear: 0},
	}

	got := agg.JournalMetrics(summaries)
	require.Len(t, got, 2)

	onc := got[0]
	assert.Equal(t, "Oncology", onc.Journal)
	assert.Equal(t, 2, onc.PublicationCount)
	assert.Equal(t, int64(30), onc.TotalCitations)
	assert.InDelta(t, 15.0, onc.AvgCitations, 1e-9)
	assert.Equal(t, 1, onc.OpenAccessCount)
	assert.Equal(t, 2020, onc.FirstPublicationYear)
	assert.Equal(t, 2022, onc.LatestPublicationYear)

	// year 0 means unparseable date and never reaches the range
	unk := got[1]
	assert.Equal(t, "Unknown Journal", unk.Journal)
	assert.Equal(t, 0, unk.FirstPublicationYear)
	assert.Equal(t, 0, unk.LatestPublicationYear)
}

func TestCollaboratingInstitutionsCountDistinctPapers(t *testing.T) {
	agg := newTestAggregator()
	rows := []InstitutionRow{
		{PaperID: "W1", InstitutionID: "I1", InstitutionName: "Partner", CountryCode: "US", Year: 2020},
		{PaperID: "W1", InstitutionID: "I1", InstitutionName: "Partner", CountryCode: "US", Year: 2020},
		{PaperID: "W2", InstitutionID: "I1", InstitutionName: "", CountryCode: "Unknown", Year: 2021},
	}

	got := agg.CollaboratingInstitutions(rows)
	require.Len(t, got, 1)

	inst := got[0]
	assert.Equal(t, 2, inst.CollaborationCount)
	assert.Equal(t, "Partner", inst.InstitutionName)
	assert.Equal(t, "US", inst.CountryCode)
	assert.Equal(t, 2020, inst.FirstCollaborationYear)
	assert.Equal(t, 2021, inst.LatestCollaborationYear)
}

func TestResearchTopics(t *testing.T) {
	agg := newTestAggregator()
	rows := []ConceptRow{
		{PaperID: "W1", ConceptID: "C1", ConceptName: "Oncology", Score: 0.7, Year: 2020},
		{PaperID: "W2", ConceptID: "C1", ConceptName: "Oncology", Score: 0.8, Year: 2021},
		{PaperID: "W3", ConceptID: "C1", ConceptName: "Oncology", Score: 0.2, Year: 2023},
		{PaperID: "W4", ConceptID: "C2", ConceptName: "Minor", Score: 0.3, Year: 2021},
	}

	got := agg.ResearchTopics(rows)
	require.Len(t, got, 1)

	topic := got[0]
	assert.Equal(t, "C1", topic.ConceptID)
	assert.Equal(t, 2, topic.PapersCount)
	assert.InDelta(t, 0.75, topic.AvgRelevanceScore, 1e-9)
	assert.Equal(t, "2020,2021", topic.YearsActive)
}

func TestResearchTopicsYearsDeduplicated(t *testing.T) {
	agg := newTestAggregator()
	rows := []ConceptRow{
		{PaperID: "W1", ConceptID: "C1", ConceptName: "Oncology", Score: 0.6, Year: 2021},
		{PaperID: "W2", ConceptID: "C1", ConceptName: "Oncology", Score: 0.6, Year: 2021},
	}

	got := agg.ResearchTopics(rows)
	require.Len(t, got, 1)
	assert.Equal(t, "2021", got[0].YearsActive)
}

func TestAuthorProductivity(t *testing.T) {
	agg := newTestAggregator()
	facts := []models.KHCCAuthor{
		{ID: 1, PaperID: "W1", AuthorName: "Alice", IsCorresponding: true, PublicationYear: 2020, Citations: 10, JournalName: "Oncology"},
		{ID: 2, PaperID: "W2", AuthorName: "Alice", PublicationYear: 2022, Citations: 30, JournalName: "Radiology"},
		{ID: 3, PaperID: "W1", AuthorName: "Bob", PublicationYear: 2020, Citations: 10, JournalName: "Oncology"},
	}

	got := agg.AuthorProductivity(facts)
	require.Len(t, got, 2)

	alice := got[0]
	assert.Equal(t, "Alice", alice.AuthorName)
	assert.Equal(t, 2, alice.TotalPapers)
	assert.Equal(t, 1, alice.CorrespondingAuthorCount)
	assert.Equal(t, int64(40), alice.TotalCitations)
	assert.InDelta(t, 20.0, alice.AvgCitationsPerPaper, 1e-9)
	assert.Equal(t, 2, alice.ActiveYears)
	assert.Equal(t, 2, alice.UniqueJournals)
	assert.Equal(t, "2020,2022", alice.YearsActive)
}

func TestAuthorCollaborations(t *testing.T) {
	agg := newTestAggregator()
	facts := []models.KHCCAuthor{
		{ID: 1, PaperID: "W1", AuthorName: "Alice", PublicationYear: 2020},
		{ID: 2, PaperID: "W1", AuthorName: "Bob", PublicationYear: 2020},
		{ID: 3, PaperID: "W2", AuthorName: "Bob", PublicationYear: 2021},
		{ID: 4, PaperID: "W2", AuthorName: "Alice", PublicationYear: 2021},
		{ID: 5, PaperID: "W2", AuthorName: "Cara", PublicationYear: 2021},
	}

	got := agg.AuthorCollaborations(facts)
	require.Len(t, got, 3)

	// Paare sind ungeordnet und alphabetisch kanonisiert
	first := got[0]
	assert.Equal(t, "Alice", first.Author1)
	assert.Equal(t, "Bob", first.Author2)
	assert.Equal(t, 2, first.CollaborationCount)
	assert.Equal(t, "2020,2021", first.CollaborationYears)
	assert.Equal(t, "coauthor", first.CollaborationType)

	assert.Equal(t, "Cara", got[1].Author2)
	assert.Equal(t, "Bob", got[2].Author1)
}

func TestSmallestNonEmpty(t *testing.T) {
	assert.Equal(t, "a", smallestNonEmpty("", "a"))
	assert.Equal(t, "a", smallestNonEmpty("a", ""))
	assert.Equal(t, "a", smallestNonEmpty("b", "a"))
	assert.Equal(t, "a", smallestNonEmpty("a", "b"))
	assert.Equal(t, "", smallestNonEmpty("", ""))
}

func TestMergeYearRange(t *testing.T) {
	var first, latest int
	mergeYearRange(&first, &latest, 0)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, latest)

	mergeYearRange(&first, &latest, 2021)
	mergeYearRange(&first, &latest, 2019)
	mergeYearRange(&first, &latest, 2023)
	assert.Equal(t, 2019, first)
	assert.Equal(t, 2023, latest)
}
