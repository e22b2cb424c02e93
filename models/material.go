// Package models contains domain entities for the clinic cost and margin system
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a purchasable supply item with a unit cost.
// Table: materials
// Unique by Name; deletion is refused while a procedure links to it.
type Material struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null;uniqueIndex:uk_materials_name" json:"name"`
	Cost        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"cost"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Supplier    *string         `gorm:"size:255" json:"supplier,omitempty"`
	CreatedAt   time.Time       `gorm:"index:idx_materials_created_at" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Material) TableName() string {
	return "materials"
}

// MaterialFilter represents filter criteria for material queries
type MaterialFilter struct {
	ID         *uint
	IDs        []uint
	Name       *string
	Names      []string
	NameSearch *string
}

// MaterialUpdate is a partial update. Nil pointers leave the column untouched.
// Description and Supplier are nullable: SetDescription with a nil value clears it.
type MaterialUpdate struct {
	Name           *string
	Cost           *decimal.Decimal
	SetDescription bool
	Description    *string
	SetSupplier    bool
	Supplier       *string
}

// IsEmpty reports whether the update carries no field at all
func (u MaterialUpdate) IsEmpty() bool {
	return u.Name == nil && u.Cost == nil && !u.SetDescription && !u.SetSupplier
}
