package testing

import (
	"fmt"
	"time"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/shopspring/decimal"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateMaterial inserts a material with the given name and cost
func (tf *TestFixtures) CreateMaterial(name string, cost int64) (*models.Material, error) {
	now := time.Now().UTC()
	m := &models.Material{
		Name:      name,
		Cost:      decimal.NewFromInt(cost),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tf.DB.DB.Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create material %s: %w", name, err)
	}
	return m, nil
}

// CreateCategory inserts a category with the given name
func (tf *TestFixtures) CreateCategory(name string) (*models.Category, error) {
	c := &models.Category{Name: name, CreatedAt: time.Now().UTC()}
	if err := tf.DB.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create category %s: %w", name, err)
	}
	return c, nil
}

// CreateProcedure inserts a procedure; category may be nil
func (tf *TestFixtures) CreateProcedure(name string, category *models.Category, price int64, recommended bool) (*models.Procedure, error) {
	now := time.Now().UTC()
	p := &models.Procedure{
		Name:          name,
		CustomerPrice: decimal.NewFromInt(price),
		IsRecommended: recommended,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	if err := tf.DB.DB.Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create procedure %s: %w", name, err)
	}
	return p, nil
}

// LinkMaterial attaches a material to a procedure with the given quantity
func (tf *TestFixtures) LinkMaterial(procedure *models.Procedure, material *models.Material, quantity string) (*models.ProcedureMaterial, error) {
	link := &models.ProcedureMaterial{
		ProcedureID: procedure.ID,
		MaterialID:  material.ID,
		Quantity:    decimal.RequireFromString(quantity),
		CreatedAt:   time.Now().UTC(),
	}
	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to link %s to %s: %w", material.Name, procedure.Name, err)
	}
	return link, nil
}
