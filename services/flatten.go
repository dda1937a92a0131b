package services

import (
	"encoding/json"
	"strings"

	"github.com/araddon/dateparse"
	"gorm.io/datatypes"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
)

const (
	unknownJournal = "Unknown Journal"
	unknownValue   = "Unknown"
)

// positionRank bildet die Autorenposition auf den Sortierrang ab:
// first < middle < last < alles andere.
func positionRank(position string) int {
	switch position {
	case "first":
		return 1
	case "middle":
		return 2
	case "last":
		return 3
	default:
		return 4
	}
}

// PaperFacts sind die Paper-Skalare, die jede Expansion mitführt.
type PaperFacts struct {
	PaperID      string
	Year         int
	Month        int
	Citations    int64
	Journal      string
	Quartile     string
	OpenAccess   bool
	ImpactFactor float64
}

// AuthorRow ist eine Zeile der Autoren-Expansion: genau eine pro
// Authorship-Eintrag, unabhängig von dessen Institutionsliste.
type AuthorRow struct {
	PaperFacts
	AuthorID        string
	AuthorName      string
	Position        string
	IsCorresponding bool
	HomeInstitution bool
}

// InstitutionRow ist eine Zeile der Institutions-Expansion:
// eine pro (Paper, Authorship, Institution).
type InstitutionRow struct {
	PaperID         string
	InstitutionID   string
	InstitutionName string
	CountryCode     string
	Year            int
}

// ConceptRow ist eine Zeile der Konzept-Expansion. Der Relevanz-Filter
// greift erst bei der Aggregation, die rohe Expansion enthält alle Scores.
type ConceptRow struct {
	PaperID     string
	ConceptID   string
	ConceptName string
	Score       float64
	Year        int
}

// Flattener expandiert eine Publikation entlang der drei Achsen Autoren,
// Institutionen und Konzepte. Die Heim-Institution ist injiziert, nicht
// einkodiert.
type Flattener struct {
	homeInstitutionID string
	idPrefix          string
	norm              *FieldNormalizer
}

func NewFlattener(cfg *config.Config, norm *FieldNormalizer) *Flattener {
	return &Flattener{
		homeInstitutionID: cfg.HomeInstitutionID,
		idPrefix:          cfg.IDPrefix,
		norm:              norm,
	}
}

// NormalizeID ergänzt das kanonische Präfix, falls es fehlt. Die Regel ist
// idempotent: zweimal anwenden liefert dasselbe Ergebnis wie einmal.
func (f *Flattener) NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, f.idPrefix) {
		return id
	}
	return f.idPrefix + id
}

// HasHomeAuthor meldet, ob mindestens ein Authorship-Eintrag die
// Heim-Institution listet. Defekter Input liefert false, nie einen Fehler.
func (f *Flattener) HasHomeAuthor(authorships []Authorship) bool {
	for _, a := range authorships {
		if f.isHomeAuthorship(a) {
			return true
		}
	}
	return false
}

func (f *Flattener) isHomeAuthorship(a Authorship) bool {
	for _, inst := range a.Institutions {
		if inst.ID == f.homeInstitutionID {
			return true
		}
	}
	return false
}

// Facts liest die Paper-Skalare mit allen Defaults: Citations 0,
// Impact-Factor 0.0, Journal "Unknown Journal", Quartil "Unknown".
// Ein nicht parsbares Datum ergibt Jahr/Monat 0.
func (f *Flattener) Facts(p *models.Publication) PaperFacts {
	facts := PaperFacts{
		PaperID:    f.NormalizeID(p.OpenalexID),
		Journal:    unknownJournal,
		Quartile:   unknownValue,
		OpenAccess: f.norm.OpenAccessFlag(p.OpenAccess),
	}
	if p.JournalName != nil && *p.JournalName != "" {
		facts.Journal = *p.JournalName
	}
	if p.Quartile != nil && *p.Quartile != "" {
		facts.Quartile = *p.Quartile
	}
	if p.Citations != nil {
		facts.Citations = *p.Citations
	}
	if p.ImpactFactor != nil {
		facts.ImpactFactor = *p.ImpactFactor
	}
	if d := strings.TrimSpace(p.PublicationDate); d != "" {
		if t, err := dateparse.ParseAny(d); err == nil {
			facts.Year = t.Year()
			facts.Month = int(t.Month())
		}
	}
	return facts
}

// AuthorRows expandiert die authorships-Spalte zu einer Zeile pro Authorship.
// Eine leere oder defekte Spalte liefert null Zeilen, ebenso ein Paper ganz
// ohne Heim-Autorenschaft.
func (f *Flattener) AuthorRows(p *models.Publication) []AuthorRow {
	authorships := f.norm.Authorships(p.Authorships)
	if len(authorships) == 0 || !f.HasHomeAuthor(authorships) {
		return nil
	}
	facts := f.Facts(p)
	rows := make([]AuthorRow, 0, len(authorships))
	for _, a := range authorships {
		rows = append(rows, AuthorRow{
			PaperFacts:      facts,
			AuthorID:        a.Author.ID,
			AuthorName:      a.Author.DisplayName,
			Position:        a.Position,
			IsCorresponding: a.IsCorresponding,
			HomeInstitution: f.isHomeAuthorship(a),
		})
	}
	return rows
}

// InstitutionRows expandiert erst nach Authorship, dann nach deren
// Institutionen. Einträge ohne ID und Namen fallen weg, die Heim-Institution
// erscheint nie als Kollaborateur.
func (f *Flattener) InstitutionRows(p *models.Publication) []InstitutionRow {
	authorships := f.norm.Authorships(p.Authorships)
	if len(authorships) == 0 {
		return nil
	}
	facts := f.Facts(p)
	var rows []InstitutionRow
	for _, a := range authorships {
		for _, inst := range a.Institutions {
			if inst.ID == "" && inst.DisplayName == "" {
				continue
			}
			if inst.ID == f.homeInstitutionID {
				continue
			}
			country := inst.CountryCode
			if country == "" {
				country = unknownValue
			}
			rows = append(rows, InstitutionRow{
				PaperID:         facts.PaperID,
				InstitutionID:   inst.ID,
				InstitutionName: inst.DisplayName,
				CountryCode:     country,
				Year:            facts.Year,
			})
		}
	}
	return rows
}

// ConceptRows expandiert die concepts-Spalte zu einer Zeile pro Konzept,
// inklusive der Zeilen unterhalb des Relevanz-Schwellwerts.
func (f *Flattener) ConceptRows(p *models.Publication) []ConceptRow {
	concepts := f.norm.Concepts(p.Concepts)
	if len(concepts) == 0 {
		return nil
	}
	facts := f.Facts(p)
	rows := make([]ConceptRow, 0, len(concepts))
	for _, c := range concepts {
		rows = append(rows, ConceptRow{
			PaperID:     facts.PaperID,
			ConceptID:   c.ID,
			ConceptName: c.DisplayName,
			Score:       c.Score,
			Year:        facts.Year,
		})
	}
	return rows
}

// Summary projiziert eine Publikation in ihre kanonische normalisierte Form.
// Die verschachtelten Felder werden re-serialisiert, damit Konsumenten immer
// gültiges JSON sehen ([] statt NULL oder Schrott).
func (f *Flattener) Summary(p *models.Publication) models.PaperSummary {
	facts := f.Facts(p)
	authorships := f.norm.Authorships(p.Authorships)
	concepts := f.norm.Concepts(p.Concepts)
	mesh := f.norm.MeshTerms(p.MeshTerms)

	authorNames := make([]string, 0, len(authorships))
	for _, a := range authorships {
		if a.Author.DisplayName != "" {
			authorNames = append(authorNames, a.Author.DisplayName)
		}
	}
	conceptNames := make([]string, 0, len(concepts))
	for _, c := range concepts {
		if c.DisplayName != "" {
			conceptNames = append(conceptNames, c.DisplayName)
		}
	}
	meshNames := make([]string, 0, len(mesh))
	for _, m := range mesh {
		if m.DescriptorName != "" {
			meshNames = append(meshNames, m.DescriptorName)
		}
	}

	return models.PaperSummary{
		PaperID:          facts.PaperID,
		Title:            p.Title,
		PublicationDate:  p.PublicationDate,
		PublicationYear:  facts.Year,
		PublicationMonth: facts.Month,
		Journal:          facts.Journal,
		ImpactFactor:     facts.ImpactFactor,
		Quartile:         facts.Quartile,
		Citations:        facts.Citations,
		OpenAccess:       facts.OpenAccess,
		PublicationType:  p.Type,
		AuthorsText:      strings.Join(authorNames, ", "),
		ConceptsText:     strings.Join(conceptNames, ", "),
		MeshTermsText:    strings.Join(meshNames, ", "),
		AuthorshipsJSON:  mustJSON(authorships),
		ConceptsJSON:     mustJSON(concepts),
		MeshJSON:         mustJSON(mesh),
	}
}

// mustJSON serialisiert bereits validierte Strukturen; ein Fehler ist hier
// nicht erreichbar, der Fallback bleibt trotzdem gültiges JSON.
func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
