package dto

// CreateMaterialRequest represents the payload to create a material
type CreateMaterialRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Cost        *float64 `json:"cost" validate:"required,gte=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty"`
	Supplier    *string  `json:"supplier,omitempty" validate:"omitempty,max=255"`
}

// UpdateMaterialRequest is a partial update; absent keys are left untouched
// and null clears description or supplier.
type UpdateMaterialRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Cost        *float64         `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Description Optional[string] `json:"description"`
	Supplier    Optional[string] `json:"supplier"`
}

// MaterialDTO represents a material for responses
type MaterialDTO struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Cost        float64 `json:"cost"`
	Description *string `json:"description"`
	Supplier    *string `json:"supplier"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// MaterialInUseDetails is returned when a delete is refused
type MaterialInUseDetails struct {
	UsedInProcedures int64 `json:"usedInProcedures"`
}
