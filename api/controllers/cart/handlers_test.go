package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/session"
	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/types"
)

func newTestRouter(t *testing.T) (http.Handler, *session.Registry) {
	t.Helper()
	reg, err := session.NewRegistry(snapshot.NewMemory(), cartsvc.Options{SyncWrites: true}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	r := chi.NewRouter()
	r.Use(middleware.Session(nil))
	r.Get("/cart", CartFetch(reg, nil))
	r.Delete("/cart", CartClear(reg, nil))
	r.Get("/cart/summary", CartSummary(reg, cartsvc.DefaultPricing(), nil))
	r.Delete("/cart/session", CartForget(reg, nil))
	r.Post("/cart/items", CartAddItem(reg, nil))
	r.Patch("/cart/items/{itemId}", CartUpdateItem(reg, nil))
	r.Delete("/cart/items/{itemId}", CartRemoveItem(reg, nil))
	return r, reg
}

func do(t *testing.T, h http.Handler, sessionID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeCart(t *testing.T, resp *httptest.ResponseRecorder) cartdto.Cart {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cartdto.Cart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartFlowMergesUpdatesAndClears(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()

	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"10.00","quantity":2}`)
	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"B","name":"Beta","unit_price":5}`)
	got := decodeCart(t, do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"10.00","quantity":1}`))

	if len(got.Items) != 2 || got.Items[0].ID != "A" || got.Items[0].Quantity != 3 || got.Items[1].Quantity != 1 {
		t.Fatalf("unexpected items %+v", got.Items)
	}
	if got.TotalItems != 4 || got.Subtotal != "35.00" {
		t.Fatalf("unexpected totals %d %s", got.TotalItems, got.Subtotal)
	}
	if got.Items[0].LineTotal != "30.00" || got.Items[0].UnitPrice != "10.00" {
		t.Fatalf("unexpected money formatting %+v", got.Items[0])
	}
	if got.SessionID != sid {
		t.Fatalf("unexpected session %s", got.SessionID)
	}

	got = decodeCart(t, do(t, h, sid, http.MethodPatch, "/cart/items/B", `{"quantity":0}`))
	if len(got.Items) != 1 || got.TotalItems != 3 || got.Subtotal != "30.00" {
		t.Fatalf("unexpected cart after update %+v", got)
	}

	got = decodeCart(t, do(t, h, sid, http.MethodDelete, "/cart", ""))
	if len(got.Items) != 0 || got.TotalItems != 0 || got.Subtotal != "0.00" {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}

func TestCartFetchMintsSession(t *testing.T) {
	h, _ := newTestRouter(t)

	resp := do(t, h, "", http.MethodGet, "/cart", "")
	minted := resp.Header().Get(middleware.SessionHeader)
	got := decodeCart(t, resp)
	if got.SessionID != minted || minted == "" {
		t.Fatalf("expected minted session echoed, header %q body %q", minted, got.SessionID)
	}
	if got.Items == nil || len(got.Items) != 0 {
		t.Fatalf("expected empty item list, got %v", got.Items)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h, _ := newTestRouter(t)
	first, second := uuid.NewString(), uuid.NewString()

	do(t, h, first, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"1.00"}`)
	got := decodeCart(t, do(t, h, second, http.MethodGet, "/cart", ""))
	if len(got.Items) != 0 {
		t.Fatalf("expected second session to be empty, got %+v", got.Items)
	}
}

func TestAbsentItemReturnsUnchangedCart(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()
	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"1.00"}`)

	got := decodeCart(t, do(t, h, sid, http.MethodDelete, "/cart/items/missing", ""))
	if len(got.Items) != 1 || got.Version != 1 {
		t.Fatalf("expected unchanged cart, got %+v", got)
	}
	got = decodeCart(t, do(t, h, sid, http.MethodPatch, "/cart/items/missing", `{"quantity":4}`))
	if len(got.Items) != 1 || got.Version != 1 {
		t.Fatalf("expected unchanged cart, got %+v", got)
	}
}

func TestRemoveItem(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()
	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"1.00"}`)
	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"B","name":"Beta","unit_price":"1.00"}`)

	got := decodeCart(t, do(t, h, sid, http.MethodDelete, "/cart/items/A", ""))
	if len(got.Items) != 1 || got.Items[0].ID != "B" {
		t.Fatalf("unexpected items %+v", got.Items)
	}
}

func TestAddItemValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()

	cases := map[string]string{
		"negative price": `{"id":"A","name":"Alpha","unit_price":"-1"}`,
		"missing price":  `{"id":"A","name":"Alpha","quantity":2}`,
		"null price":     `{"id":"A","name":"Alpha","unit_price":null}`,
		"zero quantity":  `{"id":"A","name":"Alpha","unit_price":"1","quantity":0}`,
		"missing name":   `{"id":"A","unit_price":"1"}`,
		"blank id":       `{"id":"   ","name":"Alpha","unit_price":"1"}`,
		"unknown field":  `{"id":"A","name":"Alpha","unit_price":"1","sku":"x"}`,
	}
	for name, body := range cases {
		resp := do(t, h, sid, http.MethodPost, "/cart/items", body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
		var envelope types.ErrorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if envelope.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: unexpected code %s", name, envelope.Error.Code)
		}
	}

	got := decodeCart(t, do(t, h, sid, http.MethodGet, "/cart", ""))
	if len(got.Items) != 0 {
		t.Fatalf("rejected requests must not change the cart, got %+v", got.Items)
	}
}

func TestAddItemAcceptsExplicitZeroPrice(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()

	got := decodeCart(t, do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"GIFT","name":"Gift wrap","unit_price":"0"}`))
	if len(got.Items) != 1 || got.Items[0].UnitPrice != "0.00" || got.Items[0].Quantity != 1 {
		t.Fatalf("expected a free item, got %+v", got.Items)
	}
}

func TestForgetDropsCart(t *testing.T) {
	h, reg := newTestRouter(t)
	sid := uuid.NewString()

	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"3.00","quantity":2}`)
	if reg.Len() != 1 {
		t.Fatalf("expected one open cart, got %d", reg.Len())
	}

	got := decodeCart(t, do(t, h, sid, http.MethodDelete, "/cart/session", ""))
	if len(got.Items) != 0 || got.TotalItems != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no open carts, got %d", reg.Len())
	}

	got = decodeCart(t, do(t, h, sid, http.MethodGet, "/cart", ""))
	if len(got.Items) != 0 {
		t.Fatalf("forgotten cart came back: %+v", got.Items)
	}
}

func TestUpdateRequiresQuantity(t *testing.T) {
	h, _ := newTestRouter(t)
	resp := do(t, h, uuid.NewString(), http.MethodPatch, "/cart/items/A", `{}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartSummary(t *testing.T) {
	h, _ := newTestRouter(t)
	sid := uuid.NewString()

	resp := do(t, h, sid, http.MethodGet, "/cart/summary", "")
	var empty struct {
		Data cartdto.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Data.Shipping != "0.00" || empty.Data.Total != "0.00" {
		t.Fatalf("expected free empty cart, got %+v", empty.Data)
	}

	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"A","name":"Alpha","unit_price":"10.00","quantity":3}`)
	do(t, h, sid, http.MethodPost, "/cart/items", `{"id":"B","name":"Beta","unit_price":"5.00"}`)

	resp = do(t, h, sid, http.MethodGet, "/cart/summary", "")
	var full struct {
		Data cartdto.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&full); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := cartdto.Summary{TotalItems: 4, Subtotal: "35.00", Shipping: "15.00", Tax: "2.80", Total: "52.80", Currency: "USD"}
	if full.Data != want {
		t.Fatalf("unexpected summary %+v", full.Data)
	}
}

func TestClosedRegistryReturnsUnavailable(t *testing.T) {
	h, reg := newTestRouter(t)
	if err := reg.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	resp := do(t, h, uuid.NewString(), http.MethodGet, "/cart", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
