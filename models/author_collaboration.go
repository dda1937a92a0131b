package models

// AuthorCollaboration modelliert eine ungeordnete Koautor-Kante zwischen zwei
// Heim-Institution-Autoren (author1 < author2 lexikographisch).
type AuthorCollaboration struct {
	ID                 uint   `json:"-" gorm:"primaryKey"`
	Author1            string `json:"author1" gorm:"index:idx_author_collaborations_pair,unique"`
	Author2            string `json:"author2" gorm:"index:idx_author_collaborations_pair,unique"`
	CollaborationCount int    `json:"collaboration_count"`
	CollaborationYears string `json:"collaboration_years"`
	CollaborationType  string `json:"collaboration_type" gorm:"default:'coauthor'"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (AuthorCollaboration) TableName() string {
	return "author_collaborations"
}
