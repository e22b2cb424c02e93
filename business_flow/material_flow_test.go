package businessflow

import (
	"errors"
	"testing"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialFlow_CreateAndList(t *testing.T) {
	s := newFlowSuite(t)

	created, err := s.materials.Create(s.ctx, &dto.CreateMaterialRequest{
		Name:     "  보톡스 ",
		Cost:     f64(120000),
		Supplier: strPtr("메디톡스"),
	}, s.md)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "보톡스", created.Name)
	assert.Equal(t, 120000.0, created.Cost)
	require.NotNil(t, created.Supplier)
	assert.Equal(t, "메디톡스", *created.Supplier)

	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "Filler", Cost: f64(80000)}, s.md)
	require.NoError(t, err)

	all, err := s.materials.List(s.ctx, "", s.md)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Filler", all[0].Name)

	found, err := s.materials.List(s.ctx, "fill", s.md)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Filler", found[0].Name)
}

func TestMaterialFlow_CreateValidation(t *testing.T) {
	s := newFlowSuite(t)

	_, err := s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: " ", Cost: f64(1)}, s.md)
	assert.ErrorIs(t, err, ErrMaterialNameRequired)
	assert.True(t, IsValidation(err))

	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "A"}, s.md)
	assert.ErrorIs(t, err, ErrMaterialCostRequired)

	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "A", Cost: f64(-1)}, s.md)
	assert.ErrorIs(t, err, ErrMaterialCostNegative)

	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "A", Cost: f64(1)}, s.md)
	require.NoError(t, err)
	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "A", Cost: f64(2)}, s.md)
	assert.True(t, IsMaterialNameExists(err))
}

func TestMaterialFlow_Update(t *testing.T) {
	s := newFlowSuite(t)

	m, err := s.fixtures.CreateMaterial("보톡스", 100000)
	require.NoError(t, err)
	_, err = s.fixtures.CreateMaterial("필러", 50000)
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		updated, err := s.materials.Update(s.ctx, m.ID, &dto.UpdateMaterialRequest{Cost: f64(110000)}, s.md)
		require.NoError(t, err)
		assert.Equal(t, "보톡스", updated.Name)
		assert.Equal(t, 110000.0, updated.Cost)
	})

	t.Run("explicit null clears description", func(t *testing.T) {
		_, err := s.materials.Update(s.ctx, m.ID, &dto.UpdateMaterialRequest{
			Description: dto.Optional[string]{Set: true, Valid: true, Value: "100 unit"},
		}, s.md)
		require.NoError(t, err)

		cleared, err := s.materials.Update(s.ctx, m.ID, &dto.UpdateMaterialRequest{
			Description: dto.Optional[string]{Set: true},
		}, s.md)
		require.NoError(t, err)
		assert.Nil(t, cleared.Description)
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		_, err := s.materials.Update(s.ctx, m.ID, &dto.UpdateMaterialRequest{}, s.md)
		assert.ErrorIs(t, err, ErrMaterialUpdateMissing)
	})

	t.Run("rename onto existing name", func(t *testing.T) {
		_, err := s.materials.Update(s.ctx, m.ID, &dto.UpdateMaterialRequest{Name: strPtr("필러")}, s.md)
		assert.True(t, IsMaterialNameExists(err))
	})

	t.Run("missing material", func(t *testing.T) {
		_, err := s.materials.Update(s.ctx, 9999, &dto.UpdateMaterialRequest{Cost: f64(1)}, s.md)
		assert.True(t, IsMaterialNotFound(err))
		assert.True(t, IsNotFound(err))
	})
}

func TestMaterialFlow_Delete(t *testing.T) {
	s := newFlowSuite(t)

	used, err := s.fixtures.CreateMaterial("보톡스", 100000)
	require.NoError(t, err)
	free, err := s.fixtures.CreateMaterial("거즈", 500)
	require.NoError(t, err)

	for _, name := range []string{"보톡스 50u", "보톡스 100u"} {
		p, err := s.fixtures.CreateProcedure(name, nil, 300000, false)
		require.NoError(t, err)
		_, err = s.fixtures.LinkMaterial(p, used, "1")
		require.NoError(t, err)
	}

	err = s.materials.Delete(s.ctx, used.ID, s.md)
	require.Error(t, err)
	assert.True(t, IsMaterialInUse(err))

	var detailed *DetailedError
	require.True(t, errors.As(err, &detailed))
	assert.Equal(t, "MATERIAL_IN_USE", detailed.Code)
	assert.Equal(t, dto.MaterialInUseDetails{UsedInProcedures: 2}, detailed.Details)

	require.NoError(t, s.materials.Delete(s.ctx, free.ID, s.md))
	_, err = s.materials.Get(s.ctx, free.ID, s.md)
	assert.True(t, IsMaterialNotFound(err))

	err = s.materials.Delete(s.ctx, free.ID, s.md)
	assert.True(t, IsMaterialNotFound(err))
}
