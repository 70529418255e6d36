package resources

import (
	"context"
	"strings"

	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/isdelr/bizops-api/internal/services"
	"gorm.io/gorm"
)

// ProductPayload is the write payload of the products resource.
type ProductPayload struct {
	Name        *string  `json:"name" validate:"required_on_create,omitempty,max=255"`
	SKU         *string  `json:"sku" validate:"required_on_create,omitempty,max=100,printascii"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"required_on_create,omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Active      *bool    `json:"active"`
}

// Products defines the products resource.
func Products() *services.Resource[models.Product, ProductPayload] {
	return &services.Resource[models.Product, ProductPayload]{
		Name:     "products",
		Singular: "product",
		Query: query.Config{
			Searchable:  []string{"name", "sku", "description"},
			Sortable:    []string{"id", "name", "sku", "price", "stock", "created_at"},
			DefaultSort: "name",
			DefaultDir:  query.DirAsc,
			Filters: []query.Filter{
				{Key: "active", Label: "Active", Scope: where("active = ?", true)},
				{Key: "inactive", Label: "Inactive", Scope: where("active = ?", false)},
				{Key: "in_stock", Label: "In stock", Scope: where("stock > ?", 0)},
				{Key: "out_of_stock", Label: "Out of stock", Scope: where("stock <= ?", 0)},
			},
		},
		Schema: []schema.Group{
			{Group: "Details", Fields: []schema.Field{
				schema.NewField("name", "Name", schema.TypeText).IsRequired().WithPlaceholder("Product name"),
				schema.NewField("sku", "SKU", schema.TypeText).IsRequired().WithHelp("Unique stock keeping unit."),
				schema.NewField("description", "Description", schema.TypeTextarea),
			}},
			{Group: "Inventory", Fields: []schema.Field{
				schema.NewField("price", "Price", schema.TypeCurrency).IsRequired().WithRange(schema.Bound(0), nil),
				schema.NewField("stock", "Stock", schema.TypeNumber).WithRange(schema.Bound(0), nil).WithDefault(0),
				schema.NewField("active", "Active", schema.TypeCheckbox).WithDefault(true),
			}},
		},
		Columns: []schema.Column{
			schema.NewColumn("id", "ID").Sorted().As(schema.FormatNumber),
			schema.NewColumn("name", "Name").Sorted().Searched().Linked(),
			schema.NewColumn("sku", "SKU").Sorted().Searched(),
			schema.NewColumn("price", "Price").Sorted().As(schema.FormatCurrency),
			schema.NewColumn("stock", "Stock").Sorted().As(schema.FormatNumber),
			schema.NewColumn("active", "Active").As(schema.FormatBoolean),
			schema.NewColumn("created_at", "Created").Sorted().As(schema.FormatDateTime),
		},
		Apply: applyProduct,
		Label: func(p *models.Product) string { return p.Name },
	}
}

func applyProduct(_ context.Context, _ *gorm.DB, p *ProductPayload, rec *models.Product, creating bool) error {
	if creating {
		rec.Active = true
	}
	if p.Name != nil {
		rec.Name = strings.TrimSpace(*p.Name)
	}
	if p.SKU != nil {
		rec.SKU = strings.ToUpper(strings.TrimSpace(*p.SKU))
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Price != nil {
		rec.Price = *p.Price
	}
	if p.Stock != nil {
		rec.Stock = *p.Stock
	}
	if p.Active != nil {
		rec.Active = *p.Active
	}
	return nil
}

func where(cond string, args ...interface{}) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(cond, args...)
	}
}
