// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProcedureCostQuery narrows the procedures loaded by ProcedureCostReader
type ProcedureCostQuery struct {
	ID              *uint
	CategoryName    *string // models.UncategorizedName matches procedures without category
	Search          *string
	RecommendedOnly bool
}

// ProcedureCostLine is one material line of a procedure. Cost and Quantity may be NULL.
type ProcedureCostLine struct {
	LinkID       uint
	ProcedureID  uint
	MaterialID   uint
	MaterialName string
	Cost         decimal.NullDecimal
	Quantity     decimal.NullDecimal
}

// ProcedureCostRow is a procedure with its category name and material lines
type ProcedureCostRow struct {
	ID            uint
	Name          string
	CategoryID    *uint
	CategoryName  *string
	CustomerPrice decimal.Decimal
	IsRecommended bool
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Lines         []ProcedureCostLine `gorm:"-"`
}

// ProcedureCostReaderImpl builds the read model with squirrel and runs it through gorm
type ProcedureCostReaderImpl struct {
	db *gorm.DB
}

// NewProcedureCostReader creates a new procedure cost reader
func NewProcedureCostReader(db *gorm.DB) ProcedureCostReader {
	return &ProcedureCostReaderImpl{db: db}
}

func (r *ProcedureCostReaderImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// List returns matching procedures ordered by id, each with its lines ordered by link id
func (r *ProcedureCostReaderImpl) List(ctx context.Context, query ProcedureCostQuery) ([]*ProcedureCostRow, error) {
	db := r.getDB(ctx)

	sqlStr, args, err := buildProcedureSelect(query).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build procedure query: %w", err)
	}

	var rows []*ProcedureCostRow
	if err := db.Raw(sqlStr, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load procedures: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]uint, 0, len(rows))
	byID := make(map[uint]*ProcedureCostRow, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		byID[row.ID] = row
	}

	linesSQL, linesArgs, err := buildLinesSelect(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build material lines query: %w", err)
	}

	var lines []ProcedureCostLine
	if err := db.Raw(linesSQL, linesArgs...).Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load material lines: %w", err)
	}
	for _, line := range lines {
		if row, ok := byID[line.ProcedureID]; ok {
			row.Lines = append(row.Lines, line)
		}
	}

	return rows, nil
}

func buildProcedureSelect(query ProcedureCostQuery) sq.SelectBuilder {
	b := sq.Select(
		"p.id AS id",
		"p.name AS name",
		"p.category_id AS category_id",
		"c.name AS category_name",
		"p.customer_price AS customer_price",
		"p.is_recommended AS is_recommended",
		"p.notes AS notes",
		"p.created_at AS created_at",
		"p.updated_at AS updated_at",
	).
		From("procedures p").
		LeftJoin("categories c ON c.id = p.category_id").
		OrderBy("p.id ASC")

	if query.ID != nil {
		b = b.Where(sq.Eq{"p.id": *query.ID})
	}
	if query.RecommendedOnly {
		b = b.Where(sq.Eq{"p.is_recommended": true})
	}
	if query.CategoryName != nil {
		name := strings.TrimSpace(*query.CategoryName)
		if name == models.UncategorizedName {
			b = b.Where(sq.Or{sq.Eq{"p.category_id": nil}, sq.Eq{"c.name": name}})
		} else if name != "" {
			b = b.Where(sq.Eq{"c.name": name})
		}
	}
	if query.Search != nil {
		if term := strings.TrimSpace(*query.Search); term != "" {
			b = b.Where(`LOWER(p.name) LIKE LOWER(?) ESCAPE '\'`, "%"+likeEscaper.Replace(term)+"%")
		}
	}
	return b
}

// likeEscaper makes LIKE wildcards in user input match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildLinesSelect(procedureIDs []uint) sq.SelectBuilder {
	return sq.Select(
		"pm.id AS link_id",
		"pm.procedure_id AS procedure_id",
		"pm.material_id AS material_id",
		"m.name AS material_name",
		"m.cost AS cost",
		"pm.quantity AS quantity",
	).
		From("procedure_materials pm").
		Join("materials m ON m.id = pm.material_id").
		Where(sq.Eq{"pm.procedure_id": procedureIDs}).
		OrderBy("pm.procedure_id ASC", "pm.id ASC")
}
