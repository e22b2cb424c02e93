package businessflow

import (
	"sort"
	"strings"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/shopspring/decimal"
)

// Procedure list sort fields
const (
	SortByMarginRate    = "marginRate"
	SortByMargin        = "margin"
	SortByTotalCost     = "totalCost"
	SortByCustomerPrice = "customerPrice"
	SortByName          = "name"
	SortByCreatedAt     = "createdAt"
)

// procedureView is a procedure row with its derived margin fields
type procedureView struct {
	row    *repository.ProcedureCostRow
	result MarginResult
}

func newProcedureViews(rows []*repository.ProcedureCostRow) []procedureView {
	views := make([]procedureView, 0, len(rows))
	for _, row := range rows {
		lines := make([]MarginLine, 0, len(row.Lines))
		for _, l := range row.Lines {
			lines = append(lines, MarginLine{Cost: l.Cost, Quantity: l.Quantity})
		}
		views = append(views, procedureView{
			row:    row,
			result: ComputeMargin(row.CustomerPrice, lines),
		})
	}
	return views
}

func (v procedureView) categoryName() string {
	if v.row.CategoryName == nil || strings.TrimSpace(*v.row.CategoryName) == "" {
		return models.UncategorizedName
	}
	return *v.row.CategoryName
}

func (v procedureView) toDTO() dto.ProcedureDTO {
	materials := make([]dto.ProcedureMaterialLineDTO, 0, len(v.row.Lines))
	for _, l := range v.row.Lines {
		cost := decimal.Zero
		if l.Cost.Valid {
			cost = l.Cost.Decimal
		}
		qty := decimal.NewFromInt(1)
		if l.Quantity.Valid {
			qty = l.Quantity.Decimal
		}
		materials = append(materials, dto.ProcedureMaterialLineDTO{
			ID:         l.LinkID,
			MaterialID: l.MaterialID,
			Name:       l.MaterialName,
			Cost:       moneyFloat(cost),
			Quantity:   qty.InexactFloat64(),
			TotalCost:  moneyFloat(LineCost(MarginLine{Cost: l.Cost, Quantity: l.Quantity}).Round(0)),
		})
	}

	return dto.ProcedureDTO{
		ID:            v.row.ID,
		Name:          v.row.Name,
		CategoryID:    v.row.CategoryID,
		Category:      v.categoryName(),
		CustomerPrice: moneyFloat(v.row.CustomerPrice),
		IsRecommended: v.row.IsRecommended,
		Notes:         v.row.Notes,
		TotalCost:     moneyFloat(v.result.TotalCost),
		Margin:        moneyFloat(v.result.Margin),
		MarginRate:    v.result.MarginRate.InexactFloat64(),
		Materials:     materials,
		CreatedAt:     utils.FormatTime(v.row.CreatedAt),
		UpdatedAt:     utils.FormatTime(v.row.UpdatedAt),
	}
}

func (v procedureView) toTopDTO() dto.TopProcedureDTO {
	return dto.TopProcedureDTO{
		ID:            v.row.ID,
		Name:          v.row.Name,
		Category:      v.categoryName(),
		CustomerPrice: moneyFloat(v.row.CustomerPrice),
		TotalCost:     moneyFloat(v.result.TotalCost),
		Margin:        moneyFloat(v.result.Margin),
		MarginRate:    v.result.MarginRate.InexactFloat64(),
	}
}

// compareViews orders two views by field; 0 means equal on that field
func compareViews(a, b procedureView, field string) int {
	switch field {
	case SortByMargin:
		return a.result.Margin.Cmp(b.result.Margin)
	case SortByTotalCost:
		return a.result.TotalCost.Cmp(b.result.TotalCost)
	case SortByCustomerPrice:
		return a.row.CustomerPrice.Cmp(b.row.CustomerPrice)
	case SortByName:
		return strings.Compare(a.row.Name, b.row.Name)
	case SortByCreatedAt:
		return a.row.CreatedAt.Compare(b.row.CreatedAt)
	default:
		return a.result.MarginRate.Cmp(b.result.MarginRate)
	}
}

// sortViews sorts by field in the given direction. Ties always fall back to ascending id.
func sortViews(views []procedureView, field string, desc bool) {
	sort.SliceStable(views, func(i, j int) bool {
		c := compareViews(views[i], views[j], field)
		if c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		return views[i].row.ID < views[j].row.ID
	})
}

func topViews(views []procedureView, field string, n int) []dto.TopProcedureDTO {
	sorted := make([]procedureView, len(views))
	copy(sorted, views)
	sortViews(sorted, field, true)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]dto.TopProcedureDTO, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, v.toTopDTO())
	}
	return out
}

func validSortField(field string) bool {
	switch field {
	case SortByMarginRate, SortByMargin, SortByTotalCost, SortByCustomerPrice, SortByName, SortByCreatedAt:
		return true
	}
	return false
}
