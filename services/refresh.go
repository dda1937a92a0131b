package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
)

// requiredColumns ist der Schema-Vertrag mit der Ingestion. Fehlt eine dieser
// Spalten, kann die Ableitung nicht laufen; das ist der einzige fatale Fall.
var requiredColumns = []string{
	"openalex_id",
	"title",
	"publication_date",
	"journal_name",
	"impact_factor",
	"quartile",
	"citations",
	"type",
	"open_access",
	"authorships",
	"concepts",
	"mesh_terms",
}

// RefreshResult fasst eine Neuberechnung zusammen.
type RefreshResult struct {
	Publications   int
	KHCCAuthors    int
	JournalMetrics int
	Institutions   int
	Topics         int
	Authors        int
	Collaborations int
	Duration       time.Duration
}

// RefreshService orchestriert die komplette Neuberechnung: Schema-Check,
// Bulk-Read, parallele Expansion, Aggregation und transaktionaler Austausch
// der abgeleiteten Tabellen.
type RefreshService struct {
	Config     *config.Config
	DB         *gorm.DB
	Logger     *zap.Logger
	Flattener  *Flattener
	Aggregator *Aggregator
}

// NewRefreshService erstellt eine neue Instanz des RefreshService.
func NewRefreshService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *RefreshService {
	norm := NewFieldNormalizer(logger)
	return &RefreshService{
		Config:     cfg,
		DB:         db,
		Logger:     logger,
		Flattener:  NewFlattener(cfg, norm),
		Aggregator: NewAggregator(cfg),
	}
}

// CheckSourceSchema prüft den Eingangs-Vertrag. Einzelne defekte Datensätze
// werden überall toleriert, eine fehlende Spalte dagegen nicht.
func (s *RefreshService) CheckSourceSchema() error {
	migrator := s.DB.Migrator()
	if !migrator.HasTable(&models.Publication{}) {
		return fmt.Errorf("source contract violation: table %q missing", models.Publication{}.TableName())
	}
	for _, col := range requiredColumns {
		if !migrator.HasColumn(&models.Publication{}, col) {
			return fmt.Errorf("source contract violation: column papers.%s missing", col)
		}
	}
	return nil
}

// Run berechnet alle abgeleiteten Relationen neu. Leser sehen bis zum Commit
// die vorherige Version; die Publikationen selbst werden nie verändert.
func (s *RefreshService) Run(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	if err := s.CheckSourceSchema(); err != nil {
		return nil, err
	}

	var pubs []*models.Publication
	if err := s.DB.WithContext(ctx).Find(&pubs).Error; err != nil {
		return nil, fmt.Errorf("read publications: %w", err)
	}
	s.Logger.Info("Neuberechnung gestartet", zap.Int("publications", len(pubs)))

	summaries, authorRows, instRows, conceptRows := s.flattenAll(pubs)

	khccAuthors := s.Aggregator.KHCCAuthors(authorRows)
	journalMetrics := s.Aggregator.JournalMetrics(summaries)
	institutions := s.Aggregator.CollaboratingInstitutions(instRows)
	topics := s.Aggregator.ResearchTopics(conceptRows)
	productivity := s.Aggregator.AuthorProductivity(khccAuthors)
	collaborations := s.Aggregator.AuthorCollaborations(khccAuthors)

	batch := s.Config.RefreshBatchSize
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := swapTable(tx, batch, &models.PaperSummary{}, summaries); err != nil {
			return err
		}
		if err := swapTable(tx, batch, &models.KHCCAuthor{}, khccAuthors); err != nil {
			return err
		}
		if err := swapTable(tx, batch, &models.JournalMetric{}, journalMetrics); err != nil {
			return err
		}
		if err := swapTable(tx, batch, &models.CollaboratingInstitution{}, institutions); err != nil {
			return err
		}
		if err := swapTable(tx, batch, &models.ResearchTopic{}, topics); err != nil {
			return err
		}
		if err := swapTable(tx, batch, &models.AuthorProductivity{}, productivity); err != nil {
			return err
		}
		return swapTable(tx, batch, &models.AuthorCollaboration{}, collaborations)
	})
	if err != nil {
		return nil, fmt.Errorf("write derived relations: %w", err)
	}

	result := &RefreshResult{
		Publications:   len(pubs),
		KHCCAuthors:    len(khccAuthors),
		JournalMetrics: len(journalMetrics),
		Institutions:   len(institutions),
		Topics:         len(topics),
		Authors:        len(productivity),
		Collaborations: len(collaborations),
		Duration:       time.Since(start),
	}
	s.Logger.Info("Neuberechnung abgeschlossen",
		zap.Int("publications", result.Publications),
		zap.Int("khcc_authors", result.KHCCAuthors),
		zap.Int("journal_metrics", result.JournalMetrics),
		zap.Int("collaborating_institutions", result.Institutions),
		zap.Int("research_topics", result.Topics),
		zap.Int("author_productivity", result.Authors),
		zap.Int("author_collaborations", result.Collaborations),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// flattenAll expandiert alle Publikationen in Shards parallel. Die
// Publikationen sind untereinander unabhängig; jeder Worker sammelt lokal
// und hängt das Ergebnis unter Mutex an.
func (s *RefreshService) flattenAll(pubs []*models.Publication) (
	[]models.PaperSummary, []AuthorRow, []InstitutionRow, []ConceptRow,
) {
	workers := s.Config.RefreshWorkers
	if workers < 1 {
		workers = 1
	}
	chunk := (len(pubs) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		summaries   []models.PaperSummary
		authorRows  []AuthorRow
		instRows    []InstitutionRow
		conceptRows []ConceptRow
	)
	for start := 0; start < len(pubs); start += chunk {
		end := start + chunk
		if end > len(pubs) {
			end = len(pubs)
		}
		wg.Add(1)
		go func(shard []*models.Publication) {
			defer wg.Done()
			var (
				localSummaries []models.PaperSummary
				localAuthors   []AuthorRow
				localInsts     []InstitutionRow
				localConcepts  []ConceptRow
			)
			for _, p := range shard {
				localSummaries = append(localSummaries, s.Flattener.Summary(p))
				localAuthors = append(localAuthors, s.Flattener.AuthorRows(p)...)
				localInsts = append(localInsts, s.Flattener.InstitutionRows(p)...)
				localConcepts = append(localConcepts, s.Flattener.ConceptRows(p)...)
			}
			mu.Lock()
			summaries = append(summaries, localSummaries...)
			authorRows = append(authorRows, localAuthors...)
			instRows = append(instRows, localInsts...)
			conceptRows = append(conceptRows, localConcepts...)
			mu.Unlock()
		}(pubs[start:end])
	}
	wg.Wait()

	// Shard-Reihenfolge darf nicht in die Ausgabe durchschlagen
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].PaperID < summaries[j].PaperID })
	return summaries, authorRows, instRows, conceptRows
}

// swapTable ersetzt den Inhalt einer abgeleiteten Tabelle innerhalb der
// laufenden Transaktion: Delete plus Batch-Insert.
func swapTable[T any](tx *gorm.DB, batchSize int, model any, rows []T) error {
	if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
		return fmt.Errorf("clear %T: %w", model, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("insert %T: %w", model, err)
	}
	return nil
}
