package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/bizops-api/internal/api/handlers"
	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/resources"
	"github.com/isdelr/bizops-api/internal/services"
)

type mockProducts struct {
	mock.Mock
}

func (m *mockProducts) Definition() *services.Resource[models.Product, resources.ProductPayload] {
	return resources.Products()
}

func (m *mockProducts) List(ctx context.Context, p query.Params, reqURL *url.URL) (query.Result[models.Product], error) {
	args := m.Called(ctx, p, reqURL)
	return args.Get(0).(query.Result[models.Product]), args.Error(1)
}

func (m *mockProducts) Get(ctx context.Context, id uint) (models.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Product), args.Error(1)
}

func (m *mockProducts) Create(ctx context.Context, p *resources.ProductPayload) (models.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.Product), args.Error(1)
}

func (m *mockProducts) Update(ctx context.Context, id uint, p *resources.ProductPayload) (models.Product, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(models.Product), args.Error(1)
}

func (m *mockProducts) Delete(ctx context.Context, id uint, force bool) error {
	return m.Called(ctx, id, force).Error(0)
}

func (m *mockProducts) Restore(ctx context.Context, id uint) (models.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Product), args.Error(1)
}

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Pagination *query.Pagination   `json:"pagination"`
	Columns    []map[string]any    `json:"columns"`
	Schema     []map[string]any    `json:"schema"`
	Error      *response.ErrorBody `json:"error"`
}

func serve(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func productRouter(svc *mockProducts) http.Handler {
	r := chi.NewRouter()
	h := handlers.NewResourceHandler[models.Product, resources.ProductPayload](svc)
	r.Route("/"+h.Name(), h.Routes)
	return r
}

func TestResourceHandler_List(t *testing.T) {
	svc := &mockProducts{}
	svc.On("List", mock.Anything, query.Params{Page: "2", Search: "ham"}, mock.Anything).Return(query.Result[models.Product]{
		Items:      []models.Product{{Model: models.Model{ID: 3}, Name: "Hammer"}},
		Pagination: query.Pagination{TotalItems: 1, CurrentPage: 1, ItemsPerPage: 25, TotalPages: 1},
		Sort:       query.Sort{Column: "name", Dir: query.DirAsc},
	}, nil)

	rr, env := serve(t, productRouter(svc), http.MethodGet, "/products?page=2&search=ham", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Products retrieved successfully.", env.Message)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)
	assert.NotEmpty(t, env.Columns)

	var items []models.Product
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Hammer", items[0].Name)
	svc.AssertExpectations(t)
}

func TestResourceHandler_Schema(t *testing.T) {
	rr, env := serve(t, productRouter(&mockProducts{}), http.MethodGet, "/products/schema", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, env.Schema, 2)
	assert.NotEmpty(t, env.Columns)
}

func TestResourceHandler_Get(t *testing.T) {
	svc := &mockProducts{}
	svc.On("Get", mock.Anything, uint(7)).Return(models.Product{Model: models.Model{ID: 7}, Name: "Saw"}, nil)
	svc.On("Get", mock.Anything, uint(8)).Return(models.Product{}, services.ErrNotFound)
	h := productRouter(svc)

	rr, env := serve(t, h, http.MethodGet, "/products/7", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"Saw"`)
	assert.NotEmpty(t, env.Schema)

	rr, env = serve(t, h, http.MethodGet, "/products/8", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeNotFound, env.Error.Code)
	assert.Equal(t, "Product not found.", env.Error.Details)

	rr, _ = serve(t, h, http.MethodGet, "/products/abc", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, uint(0))
}

func TestResourceHandler_Create(t *testing.T) {
	svc := &mockProducts{}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(p *resources.ProductPayload) bool {
		return p.Name != nil && *p.Name == "Drill"
	})).Return(models.Product{Model: models.Model{ID: 1}, Name: "Drill"}, nil)
	h := productRouter(svc)

	rr, env := serve(t, h, http.MethodPost, "/products", `{"name":"Drill","sku":"dr-1","price":10}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Product created successfully.", env.Message)

	rr, env = serve(t, h, http.MethodPost, "/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, response.CodeBadRequest, env.Error.Code)

	rr, _ = serve(t, h, http.MethodPost, "/products", `{"name":"a"} {"name":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNumberOfCalls(t, "Create", 1)
}

func TestResourceHandler_CreateValidationError(t *testing.T) {
	verr := services.NewValidationError("sku", "The sku field is required.")
	svc := &mockProducts{}
	svc.On("Create", mock.Anything, mock.Anything).Return(models.Product{}, verr)

	rr, env := serve(t, productRouter(svc), http.MethodPost, "/products", `{"name":"Drill"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeValidation, env.Error.Code)
	assert.Equal(t, []string{"The sku field is required."}, env.Error.ValidationErrors["sku"])
}

func TestResourceHandler_Update(t *testing.T) {
	svc := &mockProducts{}
	svc.On("Update", mock.Anything, uint(4), mock.Anything).Return(models.Product{Model: models.Model{ID: 4}}, nil).Twice()
	svc.On("Update", mock.Anything, uint(5), mock.Anything).Return(models.Product{}, services.ErrConflict)
	h := productRouter(svc)

	rr, _ := serve(t, h, http.MethodPut, "/products/4", `{"stock":3}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, env := serve(t, h, http.MethodPatch, "/products/4", `{"stock":4}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Product updated successfully.", env.Message)

	rr, env = serve(t, h, http.MethodPatch, "/products/5", `{"sku":"taken"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, response.CodeConflict, env.Error.Code)
	svc.AssertExpectations(t)
}

func TestResourceHandler_DeleteAndRestore(t *testing.T) {
	svc := &mockProducts{}
	svc.On("Delete", mock.Anything, uint(2), false).Return(nil)
	svc.On("Delete", mock.Anything, uint(2), true).Return(nil)
	svc.On("Delete", mock.Anything, uint(3), false).Return(services.ErrForbidden)
	svc.On("Restore", mock.Anything, uint(2)).Return(models.Product{Model: models.Model{ID: 2}}, nil)
	h := productRouter(svc)

	rr, env := serve(t, h, http.MethodDelete, "/products/2", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Product deleted successfully.", env.Message)

	rr, env = serve(t, h, http.MethodDelete, "/products/2?force=true", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Product permanently deleted.", env.Message)

	rr, _ = serve(t, h, http.MethodDelete, "/products/2?force=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = serve(t, h, http.MethodDelete, "/products/3", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, response.CodeForbidden, env.Error.Code)

	rr, env = serve(t, h, http.MethodPost, "/products/2/restore", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Product restored successfully.", env.Message)
	svc.AssertExpectations(t)
}

func TestResourceHandler_UnexpectedError(t *testing.T) {
	svc := &mockProducts{}
	svc.On("Get", mock.Anything, uint(1)).Return(models.Product{}, assert.AnError)

	rr, env := serve(t, productRouter(svc), http.MethodGet, "/products/1", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, response.CodeServerError, env.Error.Code)
	assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
}
