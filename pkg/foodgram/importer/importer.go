// Package importer loads the ingredient and tag catalogues from CSV files.
// Rows that already exist are left untouched, so imports can be re-run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	IngredientHeader = []string{"name", "measurement_unit"}
	TagHeader        = []string{"name", "color", "slug"}
)

// Result represents the result of an import operation
type Result struct {
	Imported int      `json:"imported"`
	Existing int      `json:"existing"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *Result) skip(line int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
	r.Skipped++
}

type ingredientRow struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

type tagRow struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,len=7,hexcolor"`
	Slug  string `json:"slug" validate:"required,max=50,slug"`
}

// Importer writes catalogue rows with insert-if-absent semantics
type Importer struct {
	db       *gorm.DB
	validate *validator.Validate
}

// New creates an importer backed by db
func New(db *gorm.DB) *Importer {
	return &Importer{db: db, validate: validation.New()}
}

// Ingredients imports (name, measurement_unit) rows. A leading header row is skipped.
func (im *Importer) Ingredients(ctx context.Context, r io.Reader) (*Result, error) {
	return im.run(ctx, r, "ingredients", IngredientHeader, func(tx *gorm.DB, line int, rec []string, result *Result) {
		row := ingredientRow{Name: rec[0], MeasurementUnit: rec[1]}
		if err := im.validate.Struct(row); err != nil {
			result.skip(line, "%s", validation.FromBinding(err).Error())
			return
		}
		im.insert(tx, line, &models.Ingredient{Name: row.Name, MeasurementUnit: row.MeasurementUnit}, result)
	})
}

// Tags imports (name, color, slug) rows. A leading header row is skipped.
func (im *Importer) Tags(ctx context.Context, r io.Reader) (*Result, error) {
	return im.run(ctx, r, "tags", TagHeader, func(tx *gorm.DB, line int, rec []string, result *Result) {
		row := tagRow{Name: rec[0], Color: strings.ToUpper(rec[1]), Slug: rec[2]}
		if err := im.validate.Struct(row); err != nil {
			result.skip(line, "%s", validation.FromBinding(err).Error())
			return
		}
		im.insert(tx, line, &models.Tag{Name: row.Name, Color: row.Color, Slug: row.Slug}, result)
	})
}

func (im *Importer) insert(tx *gorm.DB, line int, value interface{}, result *Result) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	switch {
	case errors.Is(res.Error, gorm.ErrDuplicatedKey):
		result.Existing++
	case res.Error != nil:
		result.skip(line, "%v", res.Error)
	case res.RowsAffected == 0:
		result.Existing++
	default:
		result.Imported++
	}
}

type rowFunc func(tx *gorm.DB, line int, rec []string, result *Result)

// run reads every record inside one transaction. Malformed CSV aborts the
// whole import; bad rows are reported and skipped.
func (im *Importer) run(ctx context.Context, r io.Reader, kind string, header []string, fn rowFunc) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	result := &Result{Errors: []string{}}
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first := true
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s CSV: %w", kind, err)
			}
			line, _ := cr.FieldPos(0)

			if first {
				first = false
				if isHeader(rec, header) {
					continue
				}
			}

			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
			if len(rec) != len(header) {
				result.skip(line, "expected %d columns, got %d", len(header), len(rec))
				continue
			}
			fn(tx, line, rec, result)
		}
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("kind", kind).
		Int("imported", result.Imported).
		Int("existing", result.Existing).
		Int("skipped", result.Skipped).
		Msg("catalogue import finished")
	return result, nil
}

func isHeader(rec, header []string) bool {
	if len(rec) != len(header) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return false
		}
	}
	return true
}
