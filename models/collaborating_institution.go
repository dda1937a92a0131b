package models

// CollaboratingInstitution zählt, auf wie vielen verschiedenen Papers eine
// fremde Institution gemeinsam mit der Heim-Institution auftaucht. Die
// Heim-Institution selbst erscheint hier nie.
type CollaboratingInstitution struct {
	ID                      uint   `json:"-" gorm:"primaryKey"`
	InstitutionID           string `json:"institution_id" gorm:"uniqueIndex;size:512"`
	InstitutionName         string `json:"institution_name"`
	CountryCode             string `json:"country_code"`
	CollaborationCount      int    `json:"collaboration_count"`
	FirstCollaborationYear  int    `json:"first_collaboration_year"`
	LatestCollaborationYear int    `json:"latest_collaboration_year"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (CollaboratingInstitution) TableName() string {
	return "collaborating_institutions"
}
