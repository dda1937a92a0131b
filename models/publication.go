package models

import "time"

// Publication repräsentiert eine Zeile der von der Ingestion befüllten
// papers-Tabelle. Die verschachtelten Felder sind rohe Textspalten und
// dürfen nie als gültiges JSON vorausgesetzt werden; fehlende Skalare
// bleiben als NULL erhalten und werden erst bei der Projektion gefüllt.
type Publication struct {
	OpenalexID string `json:"openalex_id" gorm:"column:openalex_id;primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty" gorm:"type:text"`
	PublicationDate string   `json:"publication_date"`
	JournalName     *string  `json:"journal_name,omitempty"`
	ImpactFactor    *float64 `json:"impact_factor,omitempty"`
	Quartile        *string  `json:"quartile,omitempty"`
	Citations       *int64   `json:"citations,omitempty"`
	Type            string   `json:"type,omitempty" gorm:"index"`
	PDFURL          string   `json:"pdf_url,omitempty" gorm:"column:pdf_url"`

	// Rohe JSON-Textspalten (gültig oder beliebiger Text)
	OpenAccess  string `json:"open_access,omitempty" gorm:"column:open_access;type:text"`
	Authorships string `json:"authorships,omitempty" gorm:"type:text"`
	Concepts    string `json:"concepts,omitempty" gorm:"type:text"`
	MeshTerms   string `json:"mesh_terms,omitempty" gorm:"type:text"`
}

// TableName gibt explizit den Tabellennamen an.
func (Publication) TableName() string {
	return "papers"
}
