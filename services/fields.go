package services

import (
	"encoding/json"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var invalidFieldCounter *prometheus.CounterVec

func init() {
	invalidFieldCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibliometrics_invalid_json_fields_total",
			Help: "Nested JSON fields that failed to parse and were replaced by their default.",
		},
		[]string{"field"},
	)
	prometheus.MustRegister(invalidFieldCounter)
}

// Author wie in einem Authorship-Eintrag verschachtelt.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Institution wie in einem Authorship-Eintrag verschachtelt.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Authorship ist die Beziehung Paper <-> Autor inklusive Position und
// Institutionsliste dieses konkreten Autorenschafts-Eintrags.
type Authorship struct {
	Author          Author        `json:"author"`
	Position        string        `json:"raw_author_position"`
	IsCorresponding bool          `json:"raw_is_corresponding"`
	Institutions    []Institution `json:"institutions"`
}

// Concept ist ein Forschungs-Konzept mit Relevanz-Score in [0,1].
type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// MeshTerm trägt nur den Descriptor-Namen; mehr braucht die Summary nicht.
type MeshTerm struct {
	DescriptorName string `json:"descriptor_name"`
}

type openAccess struct {
	IsOA bool `json:"is_oa"`
}

// FieldNormalizer kapselt jeden Zugriff auf die verschachtelten JSON-Spalten.
// Ungültiger oder fehlender Input wird nie zum Fehler, sondern immer zum
// dokumentierten Default (leere Liste bzw. false) normalisiert.
type FieldNormalizer struct {
	logger *zap.Logger
}

func NewFieldNormalizer(logger *zap.Logger) *FieldNormalizer {
	return &FieldNormalizer{logger: logger}
}

// Authorships parst die authorships-Spalte; Default ist die leere Liste.
func (n *FieldNormalizer) Authorships(raw string) []Authorship {
	var out []Authorship
	if !n.decode("authorships", raw, &out) || out == nil {
		return []Authorship{}
	}
	return out
}

// Concepts parst die concepts-Spalte; Default ist die leere Liste.
func (n *FieldNormalizer) Concepts(raw string) []Concept {
	var out []Concept
	if !n.decode("concepts", raw, &out) || out == nil {
		return []Concept{}
	}
	return out
}

// MeshTerms parst die mesh_terms-Spalte; Default ist die leere Liste.
func (n *FieldNormalizer) MeshTerms(raw string) []MeshTerm {
	var out []MeshTerm
	if !n.decode("mesh_terms", raw, &out) || out == nil {
		return []MeshTerm{}
	}
	return out
}

// OpenAccessFlag parst das open_access-Objekt; Default ist false.
func (n *FieldNormalizer) OpenAccessFlag(raw string) bool {
	var oa openAccess
	if !n.decode("open_access", raw, &oa) {
		return false
	}
	return oa.IsOA
}

// decode ist der einzige Unmarshal-Pfad. Leerer Input zählt als "Feld fehlt"
// und wird nicht als ungültig gewertet.
func (n *FieldNormalizer) decode(field, raw string, v any) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		invalidFieldCounter.WithLabelValues(field).Inc()
		n.logger.Debug("Ungültiges JSON-Feld durch Default ersetzt",
			zap.String("field", field),
			zap.Error(err))
		return false
	}
	return true
}
