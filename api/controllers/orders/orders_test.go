package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/markethub/storefront-gateway/api/middleware"
	internalorders "github.com/markethub/storefront-gateway/internal/orders"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
)

type stubOrdersService struct {
	detailID    int64
	cancelID    int64
	cancelWhy   string
	actionsID   int64
	updateInput internalorders.UpdateStatusInput
	err         error
}

func (s *stubOrdersService) ListOrders(context.Context, auth.Actor) ([]internalorders.OrderSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []internalorders.OrderSummary{{Order: marketplace.Order{ID: 1}}}, nil
}

func (s *stubOrdersService) GetOrderDetail(_ context.Context, _ auth.Actor, orderID int64) (*internalorders.OrderDetail, error) {
	s.detailID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDetail{Order: &marketplace.Order{ID: orderID}}, nil
}

func (s *stubOrdersService) CancelOrder(_ context.Context, _ auth.Actor, orderID int64, reason string) (*internalorders.CancelResult, error) {
	s.cancelID, s.cancelWhy = orderID, reason
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.CancelResult{OrderID: orderID, Message: "Order cancelled"}, nil
}

func (s *stubOrdersService) ListActions(_ context.Context, _ auth.Actor, suborderID int64) (*internalorders.ActionsView, error) {
	s.actionsID = suborderID
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.ActionsView{SuborderID: suborderID}, nil
}

func (s *stubOrdersService) UpdateSuborderStatus(_ context.Context, _ auth.Actor, input internalorders.UpdateStatusInput) (*internalorders.StatusUpdateResult, error) {
	s.updateInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.StatusUpdateResult{SuborderID: input.SuborderID, Message: "updated"}, nil
}

func request(method, body string, actor auth.Actor, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/api/v1/orders", nil)
	} else {
		req = httptest.NewRequest(method, "/api/v1/orders", strings.NewReader(body))
	}
	ctx := middleware.WithActor(req.Context(), actor)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

var (
	customer = auth.Actor{UserID: "1", Role: enums.UserRoleCustomer}
	merchant = auth.Actor{UserID: "2", Role: enums.UserRoleMerchant}
)

func TestList(t *testing.T) {
	rec := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(rec, request(http.MethodGet, "", customer, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"can_cancel":false`) {
		t.Fatalf("expected order summaries, got %s", rec.Body.String())
	}
}

func TestDetail(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", customer, map[string]string{"orderId": "31"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.detailID != 31 {
		t.Fatalf("expected order 31, got %d", svc.detailID)
	}
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", customer, map[string]string{"orderId": "31"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelOrderWithoutBody(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(rec, request(http.MethodPost, "", customer, map[string]string{"orderId": "4"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.cancelID != 4 || svc.cancelWhy != "" {
		t.Fatalf("unexpected cancel input %d %q", svc.cancelID, svc.cancelWhy)
	}
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Message != "Order cancelled" {
		t.Fatalf("expected server message passed through, got %q", env.Message)
	}
}

func TestCancelOrderTrimsReason(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"reason":"  changed my mind "}`, customer, map[string]string{"orderId": "4"}))

	if svc.cancelWhy != "changed my mind" {
		t.Fatalf("expected trimmed reason, got %q", svc.cancelWhy)
	}
}

func TestSuborderActions(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	SuborderActions(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", merchant, map[string]string{"suborderId": "77"}))

	if rec.Code != http.StatusOK || svc.actionsID != 77 {
		t.Fatalf("expected actions for 77, got code=%d id=%d", rec.Code, svc.actionsID)
	}
}

func TestSuborderStatus(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	body := `{"from_status":"CONFIRMED","status":"PROCESSING","notes":"packing"}`
	SuborderStatus(svc, nil).ServeHTTP(rec, request(http.MethodPost, body, merchant, map[string]string{"suborderId": "77"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := internalorders.UpdateStatusInput{SuborderID: 77, From: "CONFIRMED", Target: "PROCESSING", Notes: "packing"}
	if svc.updateInput != want {
		t.Fatalf("unexpected input %+v", svc.updateInput)
	}
}

func TestSuborderStatusGuardRejection(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed")}
	rec := httptest.NewRecorder()
	SuborderStatus(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"status":"DELIVERED"}`, merchant, map[string]string{"suborderId": "77"}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestSuborderStatusRequiresTarget(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	SuborderStatus(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"notes":"x"}`, merchant, map[string]string{"suborderId": "77"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.updateInput.SuborderID != 0 {
		t.Fatalf("service must not be called")
	}
}
