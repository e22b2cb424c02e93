package dto

// ProcedureMaterialInput links a material to a procedure. Quantity defaults to 1.
type ProcedureMaterialInput struct {
	MaterialID uint     `json:"materialId" validate:"required"`
	Quantity   *float64 `json:"quantity,omitempty" validate:"omitempty"`
}

// CreateProcedureRequest represents the payload to create a procedure.
// Category is a name resolved with find-or-create; CategoryID must reference an existing category.
type CreateProcedureRequest struct {
	Name          string                   `json:"name" validate:"required,max=255"`
	Category      *string                  `json:"category,omitempty" validate:"omitempty,max=255"`
	CategoryID    *uint                    `json:"categoryId,omitempty" validate:"omitempty"`
	CustomerPrice *float64                 `json:"customerPrice" validate:"required,gte=0"`
	IsRecommended *bool                    `json:"isRecommended,omitempty" validate:"omitempty"`
	Notes         *string                  `json:"notes,omitempty" validate:"omitempty"`
	Materials     []ProcedureMaterialInput `json:"materials,omitempty" validate:"omitempty,dive"`
}

// UpdateProcedureRequest is a partial update. A present materials list replaces
// every existing link of the procedure; an empty list removes them all.
type UpdateProcedureRequest struct {
	Name          *string                   `json:"name,omitempty" validate:"omitempty,max=255"`
	Category      Optional[string]          `json:"category"`
	CategoryID    Optional[uint]            `json:"categoryId"`
	CustomerPrice *float64                  `json:"customerPrice,omitempty" validate:"omitempty,gte=0"`
	IsRecommended *bool                     `json:"isRecommended,omitempty" validate:"omitempty"`
	Notes         Optional[string]          `json:"notes"`
	Materials     *[]ProcedureMaterialInput `json:"materials,omitempty"`
}

// ListProceduresQuery carries the list filters and ordering
type ListProceduresQuery struct {
	Search    string `query:"search"`
	Category  string `query:"category"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=marginRate margin totalCost customerPrice name createdAt"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// ProcedureMaterialLineDTO is one material line of a procedure
type ProcedureMaterialLineDTO struct {
	ID         uint    `json:"id"`
	MaterialID uint    `json:"materialId"`
	Name       string  `json:"name"`
	Cost       float64 `json:"cost"`
	Quantity   float64 `json:"quantity"`
	TotalCost  float64 `json:"totalCost"`
}

// ProcedureDTO represents a procedure with its derived margin fields
type ProcedureDTO struct {
	ID            uint                       `json:"id"`
	Name          string                     `json:"name"`
	CategoryID    *uint                      `json:"categoryId"`
	Category      string                     `json:"category"`
	CustomerPrice float64                    `json:"customerPrice"`
	IsRecommended bool                       `json:"isRecommended"`
	Notes         *string                    `json:"notes"`
	TotalCost     float64                    `json:"totalCost"`
	Margin        float64                    `json:"margin"`
	MarginRate    float64                    `json:"marginRate"`
	Materials     []ProcedureMaterialLineDTO `json:"materials"`
	CreatedAt     string                     `json:"createdAt"`
	UpdatedAt     string                     `json:"updatedAt"`
}
