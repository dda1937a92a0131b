package models

// ResearchTopic aggregiert ein Konzept über alle Papers, deren Relevanz-Score
// den konfigurierten Schwellwert erreicht. YearsActive ist die sortierte,
// komma-separierte Liste der distinkten Publikationsjahre.
type ResearchTopic struct {
	ID                uint    `json:"-" gorm:"primaryKey"`
	ConceptID         string  `json:"concept_id" gorm:"uniqueIndex;size:512"`
	ConceptName       string  `json:"concept_name" gorm:"index"`
	PapersCount       int     `json:"papers_count"`
	AvgRelevanceScore float64 `json:"avg_relevance_score"`
	YearsActive       string  `json:"years_active"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ResearchTopic) TableName() string {
	return "research_topics"
}
