package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcedureMaterial links a procedure to a material with a per-link quantity
type ProcedureMaterial struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProcedureID uint            `gorm:"not null;uniqueIndex:uk_procedure_materials_pair,priority:1" json:"procedure_id"`
	MaterialID  uint            `gorm:"not null;uniqueIndex:uk_procedure_materials_pair,priority:2;index:idx_procedure_materials_material_id" json:"material_id"`
	Quantity    decimal.Decimal `gorm:"type:numeric(10,3);not null;default:1" json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`

	Procedure *Procedure `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"-"`
	Material  *Material  `gorm:"foreignKey:MaterialID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (ProcedureMaterial) TableName() string {
	return "procedure_materials"
}

// ProcedureMaterialFilter represents filter criteria for link queries
type ProcedureMaterialFilter struct {
	ID          *uint
	ProcedureID *uint
	MaterialID  *uint
}
