package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agustinromero/storefront-backend/internal/catalog"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubCatalogService struct {
	product  *catalog.ProductDTO
	products []catalog.ProductDTO
	err      error

	gotSearch catalog.SearchInput
	gotDelta  int
}

func (s *stubCatalogService) Get(ctx context.Context, productID uuid.UUID) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) Search(ctx context.Context, input catalog.SearchInput) ([]catalog.ProductDTO, error) {
	s.gotSearch = input
	return s.products, s.err
}

func (s *stubCatalogService) Create(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) Update(ctx context.Context, productID uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*catalog.ProductDTO, error) {
	s.gotDelta = delta
	return s.product, s.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestProductSearchPassesFilters(t *testing.T) {
	stub := &stubCatalogService{products: []catalog.ProductDTO{{ID: uuid.New(), Name: "Mouse"}}}
	handler := ProductSearch(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?q=mouse&category=electronics&limit=5", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if stub.gotSearch.Text != "mouse" || stub.gotSearch.Category != "electronics" || stub.gotSearch.Limit != 5 {
		t.Fatalf("unexpected search input: %+v", stub.gotSearch)
	}

	var envelope struct {
		Data []catalog.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Name != "Mouse" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestProductSearchRejectsBadLimit(t *testing.T) {
	handler := ProductSearch(&stubCatalogService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=abc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	stub := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	handler := ProductDetail(stub, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil), "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestProductDetailInvalidID(t *testing.T) {
	handler := ProductDetail(&stubCatalogService{}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil), "productId", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductCreate(t *testing.T) {
	dto := &catalog.ProductDTO{ID: uuid.New(), Name: "Desk Lamp", UnitPrice: decimal.RequireFromString("35.00")}
	handler := ProductCreate(&stubCatalogService{product: dto}, nil)

	body := `{"name":"Desk Lamp","category":"home","unit_price":"35.00","stock":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestProductCreateRejectsUnknownFields(t *testing.T) {
	handler := ProductCreate(&stubCatalogService{}, nil)

	body := `{"name":"Desk Lamp","category":"home","unit_price":"35.00","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductAdjustStockPassesDelta(t *testing.T) {
	stub := &stubCatalogService{product: &catalog.ProductDTO{ID: uuid.New(), Stock: 7}}
	handler := ProductAdjustStock(stub, nil)

	req := withURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/products/x/stock", strings.NewReader(`{"delta":-3}`)),
		"productId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if stub.gotDelta != -3 {
		t.Fatalf("expected delta -3 got %d", stub.gotDelta)
	}
}

func TestProductAdjustStockInsufficient(t *testing.T) {
	stub := &stubCatalogService{err: pkgerrors.InsufficientStock(uuid.NewString(), 3, 1)}
	handler := ProductAdjustStock(stub, nil)

	req := withURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/products/x/stock", strings.NewReader(`{"delta":-3}`)),
		"productId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
