package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Procedure is a billable clinical service composed of materials.
// Total cost, margin and margin rate are derived at read time and never stored.
type Procedure struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null;index:idx_procedures_name" json:"name"`
	CategoryID    *uint           `gorm:"index:idx_procedures_category_id" json:"category_id,omitempty"`
	Category      *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	CustomerPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"customer_price"`
	IsRecommended bool            `gorm:"not null;default:false;index:idx_procedures_is_recommended" json:"is_recommended"`
	Notes         *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Procedure) TableName() string {
	return "procedures"
}

// ProcedureFilter represents filter criteria for procedure queries
type ProcedureFilter struct {
	ID            *uint
	Name          *string
	CategoryID    *uint
	IsRecommended *bool
}

// ProcedureUpdate is a partial update. CategoryID and Notes are nullable and
// use an explicit Set flag so that "clear" and "leave alone" stay distinct.
type ProcedureUpdate struct {
	Name          *string
	CustomerPrice *decimal.Decimal
	IsRecommended *bool
	SetCategoryID bool
	CategoryID    *uint
	SetNotes      bool
	Notes         *string
}

// IsEmpty reports whether the update carries no column change
func (u ProcedureUpdate) IsEmpty() bool {
	return u.Name == nil && u.CustomerPrice == nil && u.IsRecommended == nil && !u.SetCategoryID && !u.SetNotes
}
