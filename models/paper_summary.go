package models

import "gorm.io/datatypes"

// PaperSummary ist die kanonische, normalisierte Form einer Publikation:
// alle Defaults angewendet, die verschachtelten Felder als gültiges JSON
// re-serialisiert ([] bzw. Default, wenn die Quelle leer oder defekt war).
type PaperSummary struct {
	PaperID          string  `json:"paper_id" gorm:"primaryKey;size:512"`
	Title            string  `json:"title"`
	PublicationDate  string  `json:"publication_date"`
	PublicationYear  int     `json:"publication_year" gorm:"index"`
	PublicationMonth int     `json:"publication_month"`
	Journal          string  `json:"journal" gorm:"index"`
	ImpactFactor     float64 `json:"impact_factor"`
	Quartile         string  `json:"quartile"`
	Citations        int64   `json:"citations"`
	OpenAccess       bool    `json:"open_access"`
	PublicationType  string  `json:"publication_type" gorm:"index"`

	AuthorsText   string `json:"authors_text" gorm:"type:text"`
	ConceptsText  string `json:"concepts_text" gorm:"type:text"`
	MeshTermsText string `json:"mesh_terms_text" gorm:"type:text"`

	AuthorshipsJSON datatypes.JSON `json:"authorships_json" gorm:"type:jsonb"`
	ConceptsJSON    datatypes.JSON `json:"concepts_json" gorm:"type:jsonb"`
	MeshJSON        datatypes.JSON `json:"mesh_json" gorm:"type:jsonb"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (PaperSummary) TableName() string {
	return "papers_summary"
}
