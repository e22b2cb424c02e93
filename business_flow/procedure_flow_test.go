package businessflow

import (
	"testing"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcedureFlow_CreateComputesMargin(t *testing.T) {
	s := newFlowSuite(t)

	botox, err := s.fixtures.CreateMaterial("보톡스", 120000)
	require.NoError(t, err)

	created, err := s.procedures.Create(s.ctx, &dto.CreateProcedureRequest{
		Name:          "보톡스 이마",
		Category:      strPtr("보톡스"),
		CustomerPrice: f64(400000),
		Materials:     []dto.ProcedureMaterialInput{{MaterialID: botox.ID}},
	}, s.md)
	require.NoError(t, err)

	assert.Equal(t, "보톡스", created.Category)
	require.NotNil(t, created.CategoryID)
	assert.Equal(t, 400000.0, created.CustomerPrice)
	assert.Equal(t, 120000.0, created.TotalCost)
	assert.Equal(t, 280000.0, created.Margin)
	assert.Equal(t, 70.0, created.MarginRate)
	require.Len(t, created.Materials, 1)
	assert.Equal(t, botox.ID, created.Materials[0].MaterialID)
	assert.Equal(t, 1.0, created.Materials[0].Quantity)
	assert.Equal(t, 120000.0, created.Materials[0].TotalCost)
	assert.False(t, created.IsRecommended)

	again, err := s.procedures.Create(s.ctx, &dto.CreateProcedureRequest{
		Name:          "보톡스 턱",
		Category:      strPtr("보톡스"),
		CustomerPrice: f64(300000),
	}, s.md)
	require.NoError(t, err)
	assert.Equal(t, *created.CategoryID, *again.CategoryID)
}

func TestProcedureFlow_CreateValidation(t *testing.T) {
	s := newFlowSuite(t)

	m, err := s.fixtures.CreateMaterial("거즈", 500)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *dto.CreateProcedureRequest
		want error
	}{
		{
			name: "blank name",
			req:  &dto.CreateProcedureRequest{Name: " ", CustomerPrice: f64(1)},
			want: ErrProcedureNameRequired,
		},
		{
			name: "missing price",
			req:  &dto.CreateProcedureRequest{Name: "A"},
			want: ErrCustomerPriceRequired,
		},
		{
			name: "negative price",
			req:  &dto.CreateProcedureRequest{Name: "A", CustomerPrice: f64(-10)},
			want: ErrCustomerPriceNegative,
		},
		{
			name: "zero quantity",
			req: &dto.CreateProcedureRequest{Name: "A", CustomerPrice: f64(1),
				Materials: []dto.ProcedureMaterialInput{{MaterialID: m.ID, Quantity: f64(0)}}},
			want: ErrQuantityInvalid,
		},
		{
			name: "duplicate material",
			req: &dto.CreateProcedureRequest{Name: "A", CustomerPrice: f64(1),
				Materials: []dto.ProcedureMaterialInput{{MaterialID: m.ID}, {MaterialID: m.ID}}},
			want: ErrDuplicateProcedureMaterial,
		},
		{
			name: "unknown material",
			req: &dto.CreateProcedureRequest{Name: "A", CustomerPrice: f64(1),
				Materials: []dto.ProcedureMaterialInput{{MaterialID: 9999}}},
			want: ErrProcedureMaterialNotFound,
		},
		{
			name: "unknown category id",
			req:  &dto.CreateProcedureRequest{Name: "A", CustomerPrice: f64(1), CategoryID: func() *uint { v := uint(9999); return &v }()},
			want: ErrCategoryNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.procedures.Create(s.ctx, tt.req, s.md)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var n int64
	require.NoError(t, s.db.DB.Model(&models.Procedure{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestProcedureFlow_UpdateReplacesMaterials(t *testing.T) {
	s := newFlowSuite(t)

	a, err := s.fixtures.CreateMaterial("A", 1000)
	require.NoError(t, err)
	b, err := s.fixtures.CreateMaterial("B", 2000)
	require.NoError(t, err)
	c, err := s.fixtures.CreateMaterial("C", 3000)
	require.NoError(t, err)

	created, err := s.procedures.Create(s.ctx, &dto.CreateProcedureRequest{
		Name:          "P",
		CustomerPrice: f64(10000),
		Materials: []dto.ProcedureMaterialInput{
			{MaterialID: a.ID, Quantity: f64(2)},
			{MaterialID: b.ID},
		},
	}, s.md)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, created.TotalCost)

	materials := []dto.ProcedureMaterialInput{
		{MaterialID: b.ID, Quantity: f64(3)},
		{MaterialID: c.ID},
	}
	updated, err := s.procedures.Update(s.ctx, created.ID, &dto.UpdateProcedureRequest{Materials: &materials}, s.md)
	require.NoError(t, err)
	require.Len(t, updated.Materials, 2)
	ids := []uint{updated.Materials[0].MaterialID, updated.Materials[1].MaterialID}
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, ids)
	assert.Equal(t, 9000.0, updated.TotalCost)
	assert.Equal(t, 1000.0, updated.Margin)
	assert.Equal(t, 10.0, updated.MarginRate)
	assert.Equal(t, "P", updated.Name)

	empty := []dto.ProcedureMaterialInput{}
	cleared, err := s.procedures.Update(s.ctx, created.ID, &dto.UpdateProcedureRequest{Materials: &empty}, s.md)
	require.NoError(t, err)
	assert.Empty(t, cleared.Materials)
	assert.Equal(t, 0.0, cleared.TotalCost)
	assert.Equal(t, 100.0, cleared.MarginRate)
}

func TestProcedureFlow_UpdateFields(t *testing.T) {
	s := newFlowSuite(t)

	cat, err := s.fixtures.CreateCategory("필러")
	require.NoError(t, err)
	p, err := s.fixtures.CreateProcedure("P", cat, 1000, false)
	require.NoError(t, err)

	updated, err := s.procedures.Update(s.ctx, p.ID, &dto.UpdateProcedureRequest{
		CustomerPrice: f64(2000),
		Notes:         dto.Optional[string]{Set: true, Valid: true, Value: "memo"},
	}, s.md)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.CustomerPrice)
	assert.Equal(t, "필러", updated.Category)
	require.NotNil(t, updated.Notes)

	uncategorized, err := s.procedures.Update(s.ctx, p.ID, &dto.UpdateProcedureRequest{
		CategoryID: dto.Optional[uint]{Set: true},
	}, s.md)
	require.NoError(t, err)
	assert.Nil(t, uncategorized.CategoryID)
	assert.Equal(t, models.UncategorizedName, uncategorized.Category)

	_, err = s.procedures.Update(s.ctx, p.ID, &dto.UpdateProcedureRequest{}, s.md)
	assert.ErrorIs(t, err, ErrProcedureUpdateMissing)

	_, err = s.procedures.Update(s.ctx, 9999, &dto.UpdateProcedureRequest{Name: strPtr("X")}, s.md)
	assert.True(t, IsProcedureNotFound(err))
}

func TestProcedureFlow_DeleteRemovesLinks(t *testing.T) {
	s := newFlowSuite(t)

	m, err := s.fixtures.CreateMaterial("A", 1000)
	require.NoError(t, err)
	p, err := s.fixtures.CreateProcedure("P", nil, 5000, false)
	require.NoError(t, err)
	_, err = s.fixtures.LinkMaterial(p, m, "1")
	require.NoError(t, err)

	require.NoError(t, s.procedures.Delete(s.ctx, p.ID, s.md))

	var links int64
	require.NoError(t, s.db.DB.Model(&models.ProcedureMaterial{}).Count(&links).Error)
	assert.Zero(t, links)

	_, err = s.procedures.Get(s.ctx, p.ID, s.md)
	assert.True(t, IsProcedureNotFound(err))

	// the material is free again
	require.NoError(t, s.materials.Delete(s.ctx, m.ID, s.md))

	err = s.procedures.Delete(s.ctx, p.ID, s.md)
	assert.True(t, IsProcedureNotFound(err))
}

func TestProcedureFlow_ToggleRecommendation(t *testing.T) {
	s := newFlowSuite(t)

	p, err := s.fixtures.CreateProcedure("P", nil, 5000, false)
	require.NoError(t, err)

	first, err := s.procedures.ToggleRecommendation(s.ctx, p.ID, s.md)
	require.NoError(t, err)
	assert.True(t, first.IsRecommended)

	second, err := s.procedures.ToggleRecommendation(s.ctx, p.ID, s.md)
	require.NoError(t, err)
	assert.False(t, second.IsRecommended)

	_, err = s.procedures.ToggleRecommendation(s.ctx, 9999, s.md)
	assert.True(t, IsProcedureNotFound(err))
}

func TestProcedureFlow_ListSortAndFilter(t *testing.T) {
	s := newFlowSuite(t)

	cat, err := s.fixtures.CreateCategory("리프팅")
	require.NoError(t, err)
	m, err := s.fixtures.CreateMaterial("실", 50000)
	require.NoError(t, err)

	low, err := s.fixtures.CreateProcedure("실리프팅", cat, 100000, false)
	require.NoError(t, err)
	_, err = s.fixtures.LinkMaterial(low, m, "1")
	require.NoError(t, err)
	high, err := s.fixtures.CreateProcedure("상담", nil, 30000, false)
	require.NoError(t, err)
	tie, err := s.fixtures.CreateProcedure("관리", nil, 20000, false)
	require.NoError(t, err)

	t.Run("default is margin rate desc with id ties", func(t *testing.T) {
		list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{}, s.md)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []uint{high.ID, tie.ID, low.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})
		assert.Equal(t, 50.0, list[2].MarginRate)
	})

	t.Run("customer price asc", func(t *testing.T) {
		list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{SortBy: SortByCustomerPrice, SortOrder: "asc"}, s.md)
		require.NoError(t, err)
		assert.Equal(t, tie.ID, list[0].ID)
		assert.Equal(t, low.ID, list[2].ID)
	})

	t.Run("category filter", func(t *testing.T) {
		list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{Category: "리프팅"}, s.md)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, low.ID, list[0].ID)
	})

	t.Run("uncategorized filter", func(t *testing.T) {
		list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{Category: models.UncategorizedName}, s.md)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("search", func(t *testing.T) {
		list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{Search: "리프"}, s.md)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "실리프팅", list[0].Name)
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{SortBy: "bogus"}, s.md)
		assert.ErrorIs(t, err, ErrInvalidSortField)
		_, err = s.procedures.List(s.ctx, dto.ListProceduresQuery{SortOrder: "up"}, s.md)
		assert.ErrorIs(t, err, ErrInvalidSortOrder)
	})
}

func TestProcedureFlow_SearchTreatsWildcardsLiterally(t *testing.T) {
	s := newFlowSuite(t)
	for _, name := range []string{"10% 할인", "100 유닛", "A_B 패키지", "AxB 패키지"} {
		_, err := s.fixtures.CreateProcedure(name, nil, 100000, false)
		require.NoError(t, err)
	}

	tests := []struct {
		search string
		want   string
	}{
		{search: "10%", want: "10% 할인"},
		{search: "a_b", want: "A_B 패키지"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			list, err := s.procedures.List(s.ctx, dto.ListProceduresQuery{Search: tt.search}, s.md)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.want, list[0].Name)
		})
	}
}
