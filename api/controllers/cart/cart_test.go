package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/markethub/storefront-gateway/api/middleware"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
)

type stubCartService struct {
	calls     []string
	productID int64
	itemID    int64
	quantity  int
	err       error
}

func (s *stubCartService) Get(context.Context, auth.Actor) (*marketplace.Cart, error) {
	s.calls = append(s.calls, "get")
	return &marketplace.Cart{}, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _ auth.Actor, productID int64, quantity int) (*marketplace.Cart, error) {
	s.calls = append(s.calls, "add")
	s.productID, s.quantity = productID, quantity
	return &marketplace.Cart{}, s.err
}

func (s *stubCartService) UpdateItem(_ context.Context, _ auth.Actor, itemID int64, quantity int) (*marketplace.Cart, error) {
	s.calls = append(s.calls, "update")
	s.itemID, s.quantity = itemID, quantity
	return &marketplace.Cart{}, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _ auth.Actor, itemID int64) (*marketplace.Cart, error) {
	s.calls = append(s.calls, "remove")
	s.itemID = itemID
	return &marketplace.Cart{}, s.err
}

func request(method, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/api/v1/cart", nil)
	} else {
		req = httptest.NewRequest(method, "/api/v1/cart", strings.NewReader(body))
	}
	ctx := middleware.WithActor(req.Context(), auth.Actor{UserID: "42", Role: enums.UserRoleCustomer})
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func TestCartFetch(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.calls) != 1 || svc.calls[0] != "get" {
		t.Fatalf("unexpected calls %v", svc.calls)
	}
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"product_id":7,"quantity":2}`, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.productID != 7 || svc.quantity != 2 {
		t.Fatalf("unexpected input product=%d qty=%d", svc.productID, svc.quantity)
	}
}

func TestCartAddItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"product_id":7,"quantity":0}`, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called, got %v", svc.calls)
	}
}

func TestCartUpdateItem(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, request(http.MethodPut, `{"quantity":5}`, map[string]string{"itemId": "13"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.itemID != 13 || svc.quantity != 5 {
		t.Fatalf("unexpected input item=%d qty=%d", svc.itemID, svc.quantity)
	}
}

func TestCartRemoveItemDuringCheckout(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "checkout in progress")}
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, request(http.MethodDelete, "", map[string]string{"itemId": "13"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(pkgerrors.CodeCheckoutInProgress)) {
		t.Fatalf("expected checkout code in body: %s", rec.Body.String())
	}
}

func TestCartRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
