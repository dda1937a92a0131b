package models

// KHCCAuthor ist eine Zeile der khcc_authors-Faktentabelle: eine Authorship
// eines Heim-Institution-Autors, angereichert um die Paper-Skalare. Die ID
// wird bei jeder Neuberechnung deterministisch vergeben (paper_id aufsteigend,
// dann Positionsrang first < middle < last < unbekannt).
type KHCCAuthor struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement:false"`

	// Autoren ohne ID teilen author_id=""; der Index darf darum nicht unique sein.
	PaperID         string  `json:"paper_id" gorm:"index:idx_khcc_authors_paper_author;size:512"`
	AuthorID        string  `json:"author_id" gorm:"index:idx_khcc_authors_paper_author;size:512"`
	AuthorName      string  `json:"author_name" gorm:"index"`
	AuthorPosition  string  `json:"author_position"`
	IsCorresponding bool    `json:"is_corresponding"`
	PublicationYear int     `json:"publication_year" gorm:"index"`
	Citations       int64   `json:"citations"`
	JournalName     string  `json:"journal_name"`
	Quartile        string  `json:"quartile"`
	OpenAccess      bool    `json:"open_access"`
	ImpactFactor    float64 `json:"impact_factor"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (KHCCAuthor) TableName() string {
	return "khcc_authors"
}
