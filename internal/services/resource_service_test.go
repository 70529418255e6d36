package services_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/isdelr/bizops-api/internal/auth"
	"github.com/isdelr/bizops-api/internal/database/databasetest"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/resources"
	"github.com/isdelr/bizops-api/internal/services"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }
func integer(i int) *int     { return &i }
func id(v uint) *uint        { return &v }
func boolean(b bool) *bool   { return &b }

func adminCtx() context.Context {
	return auth.WithClaims(context.Background(), &auth.Claims{UserID: 1, Role: models.RoleAdmin})
}

func staffCtx() context.Context {
	return auth.WithClaims(context.Background(), &auth.Claims{UserID: 2, Role: models.RoleStaff})
}

func newProducts(t *testing.T) (*services.ResourceService[models.Product, resources.ProductPayload], *gorm.DB, *mockPublisher) {
	t.Helper()
	db := databasetest.New(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	events := services.NewEventService(db, pub)
	return services.NewResourceService(db, resources.Products(), events), db, pub
}

func TestResourceService_CreateAndGet(t *testing.T) {
	svc, db, pub := newProducts(t)
	ctx := adminCtx()

	created, err := svc.Create(ctx, &resources.ProductPayload{
		Name:  str("  Hammer "),
		SKU:   str("hm-1"),
		Price: num(12.5),
		Stock: integer(3),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Hammer", created.Name)
	assert.Equal(t, "HM-1", created.SKU)
	assert.True(t, created.Active)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	var event models.Event
	require.NoError(t, db.Where("type = ?", "product.created").First(&event).Error)
	assert.Equal(t, "products", event.Resource)
	require.NotNil(t, event.ActorID)
	assert.Equal(t, uint(1), *event.ActorID)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestResourceService_CreateValidation(t *testing.T) {
	svc, _, _ := newProducts(t)

	_, err := svc.Create(adminCtx(), &resources.ProductPayload{Price: num(-1)})
	ve, ok := services.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "sku")
	assert.Equal(t, []string{"The price field must be at least 0."}, ve.Fields["price"])
}

func TestResourceService_DuplicateIsConflict(t *testing.T) {
	svc, _, _ := newProducts(t)
	ctx := adminCtx()

	_, err := svc.Create(ctx, &resources.ProductPayload{Name: str("A"), SKU: str("X1"), Price: num(1)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &resources.ProductPayload{Name: str("B"), SKU: str("x1"), Price: num(1)})
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestResourceService_PartialUpdate(t *testing.T) {
	svc, _, _ := newProducts(t)
	ctx := adminCtx()

	created, err := svc.Create(ctx, &resources.ProductPayload{Name: str("Saw"), SKU: str("SAW"), Price: num(20), Stock: integer(4)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, &resources.ProductPayload{Price: num(0), Active: boolean(false)})
	require.NoError(t, err)
	assert.Equal(t, "Saw", updated.Name)
	assert.Equal(t, 4, updated.Stock)
	assert.Zero(t, updated.Price)
	assert.False(t, updated.Active)

	_, err = svc.Update(ctx, created.ID, &resources.ProductPayload{Name: str("")})
	_, ok := services.AsValidationError(err)
	assert.True(t, ok, "a provided blank name is rejected")

	_, err = svc.Update(ctx, 999, &resources.ProductPayload{})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestResourceService_SoftDeleteRestoreAndForce(t *testing.T) {
	svc, db, _ := newProducts(t)
	ctx := adminCtx()

	created, err := svc.Create(ctx, &resources.ProductPayload{Name: str("Tape"), SKU: str("TP"), Price: num(2)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, false))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	var count int64
	db.Unscoped().Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count, "soft deleted row is kept")

	trashed, err := svc.List(ctx, query.Params{Trashed: query.TrashedOnly}, &url.URL{Path: "/api/v1/products"})
	require.NoError(t, err)
	require.Len(t, trashed.Items, 1)

	restored, err := svc.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, restored.Trashed())

	require.NoError(t, svc.Delete(ctx, created.ID, true))
	db.Unscoped().Model(&models.Product{}).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID, false), services.ErrNotFound)
	_, err = svc.Restore(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestResourceService_RestoreLiveRecordRecordsNothing(t *testing.T) {
	svc, db, _ := newProducts(t)
	ctx := adminCtx()

	created, err := svc.Create(ctx, &resources.ProductPayload{Name: str("Glue"), SKU: str("GL"), Price: num(3)})
	require.NoError(t, err)

	restoredEvents := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.Event{}).Where("type = ?", "product.restored").Count(&n).Error)
		return n
	}

	_, err = svc.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, restoredEvents())

	require.NoError(t, svc.Delete(ctx, created.ID, false))
	_, err = svc.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), restoredEvents())
}

func TestResourceService_List(t *testing.T) {
	svc, _, _ := newProducts(t)
	ctx := adminCtx()
	for _, name := range []string{"Bolt", "Anvil", "Crate"} {
		_, err := svc.Create(ctx, &resources.ProductPayload{Name: str(name), SKU: str(name), Price: num(1)})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, query.Params{Sort: "bogus"}, &url.URL{Path: "/api/v1/products"})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "Anvil", res.Items[0].Name)
	assert.Equal(t, int64(3), res.Pagination.TotalItems)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, query.NotifyWarning, res.Notifications[0].Type)
}

func TestResourceService_PublisherFailureDoesNotFailWrite(t *testing.T) {
	db := databasetest.New(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := services.NewResourceService(db, resources.Products(), services.NewEventService(db, pub))

	_, err := svc.Create(adminCtx(), &resources.ProductPayload{Name: str("Glue"), SKU: str("GL"), Price: num(3)})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestResourceService_UsersRequireAdmin(t *testing.T) {
	db := databasetest.New(t)
	svc := services.NewResourceService(db, resources.Users(), nil)

	payload := &resources.UserPayload{Name: str("Ann"), Email: str("Ann@Example.com "), Password: str("secret-pass")}
	_, err := svc.Create(staffCtx(), payload)
	assert.ErrorIs(t, err, services.ErrForbidden)

	user, err := svc.Create(adminCtx(), payload)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.NotEqual(t, "secret-pass", user.PasswordHash)

	self := auth.WithClaims(context.Background(), &auth.Claims{UserID: user.ID, Role: models.RoleAdmin})
	assert.ErrorIs(t, svc.Delete(self, user.ID, false), services.ErrForbidden)
	assert.NoError(t, svc.Delete(adminCtx(), user.ID, false))
}

func TestResourceService_UserPasswordLimitIsBytes(t *testing.T) {
	svc := services.NewResourceService(databasetest.New(t), resources.Users(), nil)

	_, err := svc.Create(adminCtx(), &resources.UserPayload{
		Name:     str("Zoé"),
		Email:    str("zoe@example.com"),
		Password: str(strings.Repeat("é", 40)),
	})
	ve, ok := services.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []string{"The password field must not be greater than 72 bytes."}, ve.Fields["password"])

	_, err = svc.Create(adminCtx(), &resources.UserPayload{
		Name:     str("Zoé"),
		Email:    str("zoe@example.com"),
		Password: str(strings.Repeat("é", 36)),
	})
	assert.NoError(t, err)
}

func TestResourceService_Estimates(t *testing.T) {
	db := databasetest.New(t)
	ctx := adminCtx()
	products := services.NewResourceService(db, resources.Products(), nil)
	estimates := services.NewResourceService(db, resources.Estimates(), nil)

	product, err := products.Create(ctx, &resources.ProductPayload{Name: str("Widget"), SKU: str("W1"), Price: num(10)})
	require.NoError(t, err)

	est, err := estimates.Create(ctx, &resources.EstimatePayload{
		CustomerName: str("Acme"),
		ValidUntil:   str("2030-01-31"),
		Items: []resources.EstimateItemPayload{
			{ProductID: id(product.ID), Quantity: num(2)},
			{Description: str("Installation"), Quantity: num(1), UnitPrice: num(49.99)},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^EST-\d{8}-[0-9A-F]{6}$`, est.Number)
	assert.Equal(t, models.EstimateStatusDraft, est.Status)
	require.Len(t, est.Items, 2)
	assert.Equal(t, "Widget", est.Items[0].Description)
	assert.Equal(t, 69.99, est.Total)
	require.NotNil(t, est.ValidUntil)
	assert.Equal(t, "2030-01-31", est.ValidUntil.Format(resources.DateLayout))

	est, err = estimates.Update(ctx, est.ID, &resources.EstimatePayload{
		Items: []resources.EstimateItemPayload{{Description: str("Flat fee"), Quantity: num(1), UnitPrice: num(100)}},
	})
	require.NoError(t, err)
	require.Len(t, est.Items, 1)
	assert.Equal(t, 100.0, est.Total)

	var items int64
	db.Model(&models.EstimateItem{}).Count(&items)
	assert.Equal(t, int64(1), items)

	_, err = estimates.Update(ctx, est.ID, &resources.EstimatePayload{
		Items: []resources.EstimateItemPayload{{ProductID: id(999), Quantity: num(1)}},
	})
	ve, ok := services.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "items.0.product_id")

	_, err = estimates.Create(ctx, &resources.EstimatePayload{CustomerName: str("NoItems")})
	ve, ok = services.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "items")

	require.NoError(t, estimates.Delete(ctx, est.ID, true))
	db.Model(&models.EstimateItem{}).Count(&items)
	assert.Zero(t, items)
}

func TestResourceDefinitionsAreValid(t *testing.T) {
	require.NoError(t, resources.Check())
}
