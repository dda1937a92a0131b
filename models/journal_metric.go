package models

// JournalMetric aggregiert alle Publikationen einer (Journal, Quartil,
// Impact-Factor)-Kombination.
type JournalMetric struct {
	ID                    uint    `json:"-" gorm:"primaryKey"`
	Journal               string  `json:"journal" gorm:"index"`
	Quartile              string  `json:"quartile"`
	ImpactFactor          float64 `json:"impact_factor"`
	PublicationCount      int     `json:"publication_count"`
	TotalCitations        int64   `json:"total_citations"`
	AvgCitations          float64 `json:"avg_citations"`
	OpenAccessCount       int     `json:"open_access_count"`
	FirstPublicationYear  int     `json:"first_publication_year"`
	LatestPublicationYear int     `json:"latest_publication_year"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (JournalMetric) TableName() string {
	return "journal_metrics"
}
