package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"event-management-api/config"
	"event-management-api/models"

	"gorm.io/gorm"
)

// FreeformScoreField is the single score field accepted when an event has
// no barema.
const FreeformScoreField = "nota"

// RangeViolationError reports a criterion score outside its inclusive range.
type RangeViolationError struct {
	Criterion string
	Min       float64
	Max       float64
	Value     float64
}

func (e *RangeViolationError) Error() string {
	return fmt.Sprintf("criterion %q: value %g outside range [%g, %g]", e.Criterion, e.Value, e.Min, e.Max)
}

// FormatError reports a score field that is not numeric. It is distinct
// from RangeViolationError: the input type is wrong, not the value.
type FormatError struct {
	Field string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("field %q is not a number", e.Field)
}

// SchemeKind tags the scoring-scheme variant.
type SchemeKind int

const (
	SchemeFreeform SchemeKind = iota
	SchemeRubric
)

// ScoringScheme is the explicit rubric/freeform variant: either a barema
// with per-criterion ranges, or a single unranged "nota" field.
type ScoringScheme struct {
	Kind     SchemeKind
	Criteria map[string]models.CriterionRange
}

// FreeformScheme returns the fallback scheme for events without a barema.
func FreeformScheme() ScoringScheme {
	return ScoringScheme{Kind: SchemeFreeform}
}

// RubricScheme returns a rubric-backed scheme.
func RubricScheme(criteria map[string]models.CriterionRange) ScoringScheme {
	return ScoringScheme{Kind: SchemeRubric, Criteria: criteria}
}

// Validate checks raw score input against the scheme and returns the
// accepted score map plus the aggregate note (sum of rubric criteria, or
// the freeform value). Validation is all-or-nothing: the first violation
// aborts and nothing is accepted.
//
// Rubric mode ignores keys that are not rubric criteria (forward
// compatible) and treats missing criteria as "not scored". Freeform mode
// requires the single "nota" field.
func (s ScoringScheme) Validate(raw map[string]interface{}) (map[string]float64, float64, error) {
	switch s.Kind {
	case SchemeRubric:
		return s.validateRubric(raw)
	default:
		return s.validateFreeform(raw)
	}
}

func (s ScoringScheme) validateRubric(raw map[string]interface{}) (map[string]float64, float64, error) {
	scores := make(map[string]float64, len(raw))
	note := 0.0

	// Deterministic field order so the first reported violation is stable.
	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		bounds, known := s.Criteria[field]
		if !known {
			continue
		}

		value, err := numericValue(field, raw[field])
		if err != nil {
			return nil, 0, err
		}

		if !bounds.Contains(value) {
			return nil, 0, &RangeViolationError{
				Criterion: field,
				Min:       bounds.Min,
				Max:       bounds.Max,
				Value:     value,
			}
		}

		scores[field] = value
		note += value
	}

	return scores, note, nil
}

func (s ScoringScheme) validateFreeform(raw map[string]interface{}) (map[string]float64, float64, error) {
	value, ok := raw[FreeformScoreField]
	if !ok {
		return nil, 0, &FormatError{Field: FreeformScoreField}
	}

	nota, err := numericValue(FreeformScoreField, value)
	if err != nil {
		return nil, 0, err
	}

	return map[string]float64{FreeformScoreField: nota}, nota, nil
}

// numericValue coerces a decoded JSON value into a float64. Strings are
// accepted because review forms post their fields as text.
func numericValue(field string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &FormatError{Field: field}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &FormatError{Field: field}
		}
		return f, nil
	default:
		return 0, &FormatError{Field: field}
	}
}

// BaremaService resolves the scoring scheme that applies to an event.
type BaremaService struct {
	db *gorm.DB
}

func NewBaremaService(db *gorm.DB) *BaremaService {
	if db == nil {
		db = config.DB
	}
	return &BaremaService{db: db}
}

// ResolveScheme returns the event's rubric scheme, or the freeform
// fallback when no barema row exists.
func (s *BaremaService) ResolveScheme(eventID int) (ScoringScheme, error) {
	return s.resolveSchemeTx(s.db, eventID)
}

func (s *BaremaService) resolveSchemeTx(tx *gorm.DB, eventID int) (ScoringScheme, error) {
	var barema models.Barema
	if err := tx.Where("event_id = ?", eventID).First(&barema).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FreeformScheme(), nil
		}
		return ScoringScheme{}, err
	}

	criteria, err := barema.ParseCriteria()
	if err != nil {
		return ScoringScheme{}, fmt.Errorf("barema %d has invalid criteria: %w", barema.BaremaID, err)
	}
	if len(criteria) == 0 {
		return FreeformScheme(), nil
	}

	return RubricScheme(criteria), nil
}
