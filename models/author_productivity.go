package models

// AuthorProductivity aggregiert die khcc_authors-Fakten pro Anzeigename.
// Gruppiert wird bewusst nach Name statt Author-ID, weil die IDs in den
// Quelldaten nicht durchgängig gepflegt sind; Namensgleiche verschmelzen.
type AuthorProductivity struct {
	ID                       uint    `json:"-" gorm:"primaryKey"`
	AuthorName               string  `json:"author_name" gorm:"uniqueIndex"`
	TotalPapers              int     `json:"total_papers"`
	CorrespondingAuthorCount int     `json:"corresponding_author_count"`
	TotalCitations           int64   `json:"total_citations"`
	AvgCitationsPerPaper     float64 `json:"avg_citations_per_paper"`
	ActiveYears              int     `json:"active_years"`
	UniqueJournals           int     `json:"unique_journals"`
	YearsActive              string  `json:"years_active"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (AuthorProductivity) TableName() string {
	return "author_productivity"
}
