package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/isdelr/bizops-api/internal/services"
	"gorm.io/gorm"
)

// DateLayout is the wire format of date-only fields.
const DateLayout = "2006-01-02"

// EstimateItemPayload is one line of an estimate payload. Lines linked to a
// product inherit its name and price unless they are given explicitly.
type EstimateItemPayload struct {
	ProductID   *uint    `json:"product_id"`
	Description *string  `json:"description" validate:"required_without=ProductID,omitempty,max=500"`
	Quantity    *float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   *float64 `json:"unit_price" validate:"required_without=ProductID,omitempty,gte=0"`
}

// EstimatePayload is the write payload of the estimates resource. A provided
// items list replaces every existing line.
type EstimatePayload struct {
	Number        *string               `json:"number" validate:"omitempty,max=32,printascii"`
	CustomerName  *string               `json:"customer_name" validate:"required_on_create,omitempty,max=255"`
	CustomerEmail *string               `json:"customer_email" validate:"omitempty,email,max=255"`
	Status        *string               `json:"status" validate:"omitempty,oneof=draft sent accepted rejected expired"`
	ValidUntil    *string               `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Notes         *string               `json:"notes" validate:"omitempty,max=10000"`
	Items         []EstimateItemPayload `json:"items" validate:"required_on_create,omitempty,min=1,dive"`
}

// Estimates defines the estimates resource.
func Estimates() *services.Resource[models.Estimate, EstimatePayload] {
	statuses := make([]string, 0, len(models.EstimateStatuses))
	filters := make([]query.Filter, 0, len(models.EstimateStatuses)+1)
	for _, s := range models.EstimateStatuses {
		statuses = append(statuses, string(s))
		filters = append(filters, query.Filter{Key: string(s), Label: schema.Capitalize(string(s)), Scope: where("status = ?", s)})
	}
	filters = append(filters, query.Filter{Key: "expired_due", Label: "Past valid date", Scope: PastValidDate(time.Now)})

	return &services.Resource[models.Estimate, EstimatePayload]{
		Name:     "estimates",
		Singular: "estimate",
		Query: query.Config{
			Searchable:  []string{"number", "customer_name", "customer_email"},
			Sortable:    []string{"id", "number", "customer_name", "status", "total", "valid_until", "created_at"},
			DefaultSort: "created_at",
			DefaultDir:  query.DirDesc,
			Filters:     filters,
		},
		Preload: []string{"Items"},
		Schema: []schema.Group{
			{Group: "Customer", Fields: []schema.Field{
				schema.NewField("customer_name", "Customer name", schema.TypeText).IsRequired(),
				schema.NewField("customer_email", "Customer email", schema.TypeEmail),
			}},
			{Group: "Estimate", Fields: []schema.Field{
				schema.NewField("number", "Number", schema.TypeText).WithHelp("Generated when left empty."),
				schema.NewField("status", "Status", schema.TypeSelect).
					WithOptions(schema.Options(statuses...)...).WithDefault(string(models.EstimateStatusDraft)),
				schema.NewField("valid_until", "Valid until", schema.TypeDate),
				schema.NewField("notes", "Notes", schema.TypeTextarea),
			}},
			{Group: "Items", Fields: []schema.Field{
				schema.NewField("items", "Items", schema.TypeItems).IsRequired().WithFields(
					schema.NewField("product_id", "Product", schema.TypeNumber),
					schema.NewField("description", "Description", schema.TypeText),
					schema.NewField("quantity", "Quantity", schema.TypeNumber).IsRequired().WithDefault(1),
					schema.NewField("unit_price", "Unit price", schema.TypeCurrency).WithRange(schema.Bound(0), nil),
				),
				schema.NewField("total", "Total", schema.TypeCurrency).IsReadonly(),
			}},
		},
		Columns: []schema.Column{
			schema.NewColumn("number", "Number").Sorted().Searched().Linked(),
			schema.NewColumn("customer_name", "Customer").Sorted().Searched(),
			schema.NewColumn("status", "Status").Sorted().As(schema.FormatBadge),
			schema.NewColumn("total", "Total").Sorted().As(schema.FormatCurrency),
			schema.NewColumn("valid_until", "Valid until").Sorted().As(schema.FormatDate),
			schema.NewColumn("created_at", "Created").Sorted().As(schema.FormatDateTime),
		},
		Apply: applyEstimate,
		Label: func(e *models.Estimate) string { return e.Number },
	}
}

func applyEstimate(ctx context.Context, tx *gorm.DB, p *EstimatePayload, rec *models.Estimate, creating bool) error {
	if creating {
		rec.Status = models.EstimateStatusDraft
		rec.Number = NewEstimateNumber(time.Now())
	}
	if p.Number != nil && strings.TrimSpace(*p.Number) != "" {
		rec.Number = strings.ToUpper(strings.TrimSpace(*p.Number))
	}
	if p.CustomerName != nil {
		rec.CustomerName = strings.TrimSpace(*p.CustomerName)
	}
	if p.CustomerEmail != nil {
		rec.CustomerEmail = services.NormalizeEmail(*p.CustomerEmail)
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.ValidUntil != nil {
		if *p.ValidUntil == "" {
			rec.ValidUntil = nil
		} else {
			d, err := time.ParseInLocation(DateLayout, *p.ValidUntil, time.UTC)
			if err != nil {
				return services.NewValidationError("valid_until", "The valid until field must be a date.")
			}
			rec.ValidUntil = &d
		}
	}

	if p.Items != nil {
		if !creating && rec.Status.IsFinal() {
			return services.NewValidationError("items", "Items cannot be changed once an estimate is final.")
		}
		items, err := estimateItems(ctx, tx, p.Items)
		if err != nil {
			return err
		}
		rec.ReplaceItems(items)
	}

	if p.Status != nil {
		rec.Status = models.EstimateStatus(*p.Status)
	}
	return nil
}

func estimateItems(ctx context.Context, tx *gorm.DB, lines []EstimateItemPayload) ([]models.EstimateItem, error) {
	verr := &services.ValidationError{}
	items := make([]models.EstimateItem, 0, len(lines))

	for i, line := range lines {
		item := models.EstimateItem{Quantity: *line.Quantity}
		if line.ProductID != nil {
			var product models.Product
			err := tx.WithContext(ctx).Select("id", "name", "price").First(&product, *line.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				verr.Add(fmt.Sprintf("items.%d.product_id", i), "The selected product is invalid.")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load product %d: %w", *line.ProductID, err)
			}
			item.ProductID = &product.ID
			item.Description = product.Name
			item.UnitPrice = product.Price
		}
		if line.Description != nil {
			item.Description = strings.TrimSpace(*line.Description)
		}
		if line.UnitPrice != nil {
			item.UnitPrice = *line.UnitPrice
		}
		items = append(items, item)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return items, nil
}

// NewEstimateNumber builds a number like EST-20240131-9F3A1C.
func NewEstimateNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("EST-%s-%s", now.UTC().Format("20060102"), suffix)
}

// PastValidDate scopes to open estimates whose valid-until day has ended.
func PastValidDate(now func() time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("valid_until < ?", models.ExpiryCutoff(now())).
			Where("status NOT IN ?", []models.EstimateStatus{
				models.EstimateStatusAccepted, models.EstimateStatusRejected, models.EstimateStatusExpired,
			})
	}
}
