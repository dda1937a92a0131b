package services

import (
	"sort"
	"strconv"
	"strings"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
)

// Aggregator berechnet die abgeleiteten Relationen als reine Group-bys über
// die Expansions-Zeilen. Alle Ausgaben sind auf ihrem Gruppenschlüssel
// sortiert, damit wiederholte Berechnung auf gleichem Input identische
// Relationen liefert.
type Aggregator struct {
	minConceptScore float64
}

func NewAggregator(cfg *config.Config) *Aggregator {
	return &Aggregator{minConceptScore: cfg.ConceptMinScore}
}

// KHCCAuthors baut die khcc_authors-Faktentabelle: nur Heim-Institution-
// Authorships, dedupliziert pro (Paper, Autor), total geordnet nach
// (paper_id, Positionsrang) und mit fortlaufenden IDs versehen.
func (a *Aggregator) KHCCAuthors(rows []AuthorRow) []models.KHCCAuthor {
	home := make([]AuthorRow, 0, len(rows))
	for _, r := range rows {
		if r.HomeInstitution {
			home = append(home, r)
		}
	}
	sort.SliceStable(home, func(i, j int) bool {
		if home[i].PaperID != home[j].PaperID {
			return home[i].PaperID < home[j].PaperID
		}
		ri, rj := positionRank(home[i].Position), positionRank(home[j].Position)
		if ri != rj {
			return ri < rj
		}
		if home[i].AuthorName != home[j].AuthorName {
			return home[i].AuthorName < home[j].AuthorName
		}
		if home[i].AuthorID != home[j].AuthorID {
			return home[i].AuthorID < home[j].AuthorID
		}
		// totale Ordnung auch für Duplikate: corresponding gewinnt,
		// unabhängig von der Shard-Reihenfolge des Inputs
		return home[i].IsCorresponding && !home[j].IsCorresponding
	})

	seen := make(map[string]bool, len(home))
	out := make([]models.KHCCAuthor, 0, len(home))
	for _, r := range home {
		// Autoren ohne ID dürfen nicht alle auf denselben Schlüssel fallen
		key := r.PaperID + "\x00" + r.AuthorID
		if r.AuthorID == "" {
			key = r.PaperID + "\x00\x00" + r.AuthorName
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.KHCCAuthor{
			ID:              uint(len(out) + 1),
			PaperID:         r.PaperID,
			AuthorID:        r.AuthorID,
			AuthorName:      r.AuthorName,
			AuthorPosition:  r.Position,
			IsCorresponding: r.IsCorresponding,
			PublicationYear: r.Year,
			Citations:       r.Citations,
			JournalName:     r.Journal,
			Quartile:        r.Quartile,
			OpenAccess:      r.OpenAccess,
			ImpactFactor:    r.ImpactFactor,
		})
	}
	return out
}

// JournalMetrics gruppiert die Papers-Summary nach
// (Journal, Quartil, Impact-Factor).
func (a *Aggregator) JournalMetrics(summaries []models.PaperSummary) []models.JournalMetric {
	type key struct {
		journal  string
		quartile string
		impact   float64
	}
	acc := map[key]*models.JournalMetric{}
	for _, s := range summaries {
		k := key{journal: s.Journal, quartile: s.Quartile, impact: s.ImpactFactor}
		m, ok := acc[k]
		if !ok {
			m = &models.JournalMetric{
				Journal:      s.Journal,
				Quartile:     s.Quartile,
				ImpactFactor: s.ImpactFactor,
			}
			acc[k] = m
		}
		m.PublicationCount++
		m.TotalCitations += s.Citations
		if s.OpenAccess {
			m.OpenAccessCount++
		}
		mergeYearRange(&m.FirstPublicationYear, &m.LatestPublicationYear, s.PublicationYear)
	}

	out := make([]models.JournalMetric, 0, len(acc))
	for _, m := range acc {
		m.AvgCitations = float64(m.TotalCitations) / float64(m.PublicationCount)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Journal != out[j].Journal {
			return out[i].Journal < out[j].Journal
		}
		if out[i].Quartile != out[j].Quartile {
			return out[i].Quartile < out[j].Quartile
		}
		return out[i].ImpactFactor < out[j].ImpactFactor
	})
	return out
}

// CollaboratingInstitutions gruppiert nach Institutions-ID und zählt
// distinkte Papers, nicht rohe Authorship-Paare: eine Institution auf drei
// Authorships desselben Papers zählt einmal.
func (a *Aggregator) CollaboratingInstitutions(rows []InstitutionRow) []models.CollaboratingInstitution {
	type acc struct {
		metric models.CollaboratingInstitution
		papers map[string]bool
	}
	groups := map[string]*acc{}
	for _, r := range rows {
		g, ok := groups[r.InstitutionID]
		if !ok {
			g = &acc{
				metric: models.CollaboratingInstitution{InstitutionID: r.InstitutionID},
				papers: map[string]bool{},
			}
			groups[r.InstitutionID] = g
		}
		g.papers[r.PaperID] = true
		g.metric.InstitutionName = smallestNonEmpty(g.metric.InstitutionName, r.InstitutionName)
		g.metric.CountryCode = smallestNonEmpty(g.metric.CountryCode, r.CountryCode)
		mergeYearRange(&g.metric.FirstCollaborationYear, &g.metric.LatestCollaborationYear, r.Year)
	}

	out := make([]models.CollaboratingInstitution, 0, len(groups))
	for _, g := range groups {
		g.metric.CollaborationCount = len(g.papers)
		out = append(out, g.metric)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstitutionID < out[j].InstitutionID })
	return out
}

// ResearchTopics gruppiert nach Konzept-ID, nachdem der Relevanz-Filter
// angewendet wurde. years_active listet jedes distinkte Jahr genau einmal,
// auch wenn mehrere Papers desselben Jahres das Konzept tragen.
func (a *Aggregator) ResearchTopics(rows []ConceptRow) []models.ResearchTopic {
	type acc struct {
		topic    models.ResearchTopic
		papers   map[string]bool
		years    map[int]bool
		scoreSum float64
		rowCount int
	}
	groups := map[string]*acc{}
	for _, r := range rows {
		if r.Score < a.minConceptScore {
			continue
		}
		g, ok := groups[r.ConceptID]
		if !ok {
			g = &acc{
				topic:  models.ResearchTopic{ConceptID: r.ConceptID},
				papers: map[string]bool{},
				years:  map[int]bool{},
			}
			groups[r.ConceptID] = g
		}
		g.papers[r.PaperID] = true
		if r.Year > 0 {
			g.years[r.Year] = true
		}
		g.scoreSum += r.Score
		g.rowCount++
		g.topic.ConceptName = smallestNonEmpty(g.topic.ConceptName, r.ConceptName)
	}

	out := make([]models.ResearchTopic, 0, len(groups))
	for _, g := range groups {
		g.topic.PapersCount = len(g.papers)
		g.topic.AvgRelevanceScore = g.scoreSum / float64(g.rowCount)
		g.topic.YearsActive = joinYears(g.years)
		out = append(out, g.topic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out
}

// AuthorProductivity gruppiert die khcc_authors-Fakten nach Anzeigename.
func (a *Aggregator) AuthorProductivity(facts []models.KHCCAuthor) []models.AuthorProductivity {
	type acc struct {
		metric   models.AuthorProductivity
		papers   map[string]bool
		journals map[string]bool
		years    map[int]bool
	}
	groups := map[string]*acc{}
	for _, f := range facts {
		g, ok := groups[f.AuthorName]
		if !ok {
			g = &acc{
				metric:   models.AuthorProductivity{AuthorName: f.AuthorName},
				papers:   map[string]bool{},
				journals: map[string]bool{},
				years:    map[int]bool{},
			}
			groups[f.AuthorName] = g
		}
		g.papers[f.PaperID] = true
		g.journals[f.JournalName] = true
		if f.PublicationYear > 0 {
			g.years[f.PublicationYear] = true
		}
		if f.IsCorresponding {
			g.metric.CorrespondingAuthorCount++
		}
		g.metric.TotalCitations += f.Citations
	}

	out := make([]models.AuthorProductivity, 0, len(groups))
	for _, g := range groups {
		g.metric.TotalPapers = len(g.papers)
		g.metric.AvgCitationsPerPaper = float64(g.metric.TotalCitations) / float64(g.metric.TotalPapers)
		g.metric.ActiveYears = len(g.years)
		g.metric.UniqueJournals = len(g.journals)
		g.metric.YearsActive = joinYears(g.years)
		out = append(out, g.metric)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthorName < out[j].AuthorName })
	return out
}

// AuthorCollaborations baut die Koautor-Kanten zwischen Heim-Institution-
// Autoren: ein Paar pro ungeordneter Namenskombination, gezählt über
// distinkte gemeinsame Papers.
func (a *Aggregator) AuthorCollaborations(facts []models.KHCCAuthor) []models.AuthorCollaboration {
	byPaper := map[string][]string{}
	for _, f := range facts {
		if f.AuthorName == "" {
			continue
		}
		byPaper[f.PaperID] = append(byPaper[f.PaperID], f.AuthorName)
	}

	type acc struct {
		papers map[string]bool
		years  map[int]bool
	}
	yearByPaper := map[string]int{}
	for _, f := range facts {
		yearByPaper[f.PaperID] = f.PublicationYear
	}
	groups := map[[2]string]*acc{}
	for paperID, names := range byPaper {
		sort.Strings(names)
		names = dedupeStrings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				pair := [2]string{names[i], names[j]}
				g, ok := groups[pair]
				if !ok {
					g = &acc{papers: map[string]bool{}, years: map[int]bool{}}
					groups[pair] = g
				}
				g.papers[paperID] = true
				if y := yearByPaper[paperID]; y > 0 {
					g.years[y] = true
				}
			}
		}
	}

	out := make([]models.AuthorCollaboration, 0, len(groups))
	for pair, g := range groups {
		out = append(out, models.AuthorCollaboration{
			Author1:            pair[0],
			Author2:            pair[1],
			CollaborationCount: len(g.papers),
			CollaborationYears: joinYears(g.years),
			CollaborationType:  "coauthor",
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Author1 != out[j].Author1 {
			return out[i].Author1 < out[j].Author1
		}
		return out[i].Author2 < out[j].Author2
	})
	return out
}

// mergeYearRange zieht ein Jahr in das (first, latest)-Paar ein; Jahr 0
// steht für "Datum unbekannt" und bleibt außen vor.
func mergeYearRange(first, latest *int, year int) {
	if year <= 0 {
		return
	}
	if *first == 0 || year < *first {
		*first = year
	}
	if year > *latest {
		*latest = year
	}
}

// smallestNonEmpty löst "first seen"-Felder deterministisch auf: der
// lexikographisch kleinste nicht-leere Rohwert gewinnt.
func smallestNonEmpty(current, candidate string) string {
	if candidate == "" {
		return current
	}
	if current == "" || candidate < current {
		return candidate
	}
	return current
}

func joinYears(years map[int]bool) string {
	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, y := range sorted {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

func dedupeStrings(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
