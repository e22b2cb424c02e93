package dto

// DashboardStatsDTO summarizes the whole catalogue
type DashboardStatsDTO struct {
	TotalProcedures  int64   `json:"totalProcedures"`
	RecommendedCount int64   `json:"recommendedCount"`
	TotalMaterials   int64   `json:"totalMaterials"`
	TotalCategories  int64   `json:"totalCategories"`
	AvgMarginRate    float64 `json:"avgMarginRate"`
	MaxMargin        float64 `json:"maxMargin"`
	AvgPrice         float64 `json:"avgPrice"`
}

// TopProcedureDTO is one entry of the top-N lists
type TopProcedureDTO struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	CustomerPrice float64 `json:"customerPrice"`
	TotalCost     float64 `json:"totalCost"`
	Margin        float64 `json:"margin"`
	MarginRate    float64 `json:"marginRate"`
}

// CategoryStatDTO aggregates the procedures of one category.
// ID is nil for the bucket of uncategorized procedures.
type CategoryStatDTO struct {
	ID             *uint   `json:"id"`
	Name           string  `json:"name"`
	ProcedureCount int     `json:"procedureCount"`
	AvgMarginRate  float64 `json:"avgMarginRate"`
	TotalMargin    float64 `json:"totalMargin"`
}
