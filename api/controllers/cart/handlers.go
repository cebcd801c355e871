package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// Carts resolves the cart store for a session. session.Registry implements it.
type Carts interface {
	Store(ctx context.Context, sessionID string) (*cartsvc.Store, error)
	Drop(ctx context.Context, sessionID string) error
}

// CartFetch returns the session's items, totals and version.
func CartFetch(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store) {
		responses.WriteSuccess(w, newCart(sessionID, store.State()))
	})
}

// CartSummary prices the session's cart.
func CartSummary(carts Carts, pricing cartsvc.Pricing, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, _ string, store *cartsvc.Store) {
		responses.WriteSuccess(w, newSummary(store.Summary(pricing)))
	})
}

// CartAddItem merges a product into the cart.
func CartAddItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store) {
		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, qty := toProduct(payload)
		if product.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"id": "is required"}))
			return
		}

		state := store.AddItem(r.Context(), product, qty)
		responses.WriteSuccess(w, newCart(sessionID, state))
	})
}

// CartUpdateItem sets the quantity of one row. Unknown ids leave the cart
// unchanged and still succeed.
func CartUpdateItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store) {
		itemID := chi.URLParam(r, "itemId")

		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state := store.UpdateQuantity(r.Context(), itemID, *payload.Quantity)
		responses.WriteSuccess(w, newCart(sessionID, state))
	})
}

// CartRemoveItem deletes one row. Unknown ids leave the cart unchanged.
func CartRemoveItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store) {
		state := store.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
		responses.WriteSuccess(w, newCart(sessionID, state))
	})
}

// CartClear empties the cart.
func CartClear(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(carts, logg, func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store) {
		responses.WriteSuccess(w, newCart(sessionID, store.Clear(r.Context())))
	})
}

// CartForget discards the session's cart and deletes its snapshot. The
// next request for the session starts from an empty cart.
func CartForget(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session missing"))
			return
		}
		if err := carts.Drop(r.Context(), sessionID); err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forget cart")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(sessionID, cartsvc.State{}))
	}
}

type storeHandler func(w http.ResponseWriter, r *http.Request, sessionID string, store *cartsvc.Store)

func withStore(carts Carts, logg *logger.Logger, next storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session missing"))
			return
		}

		store, err := carts.Store(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrClosed) {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart service shutting down")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next(w, r, sessionID, store)
	}
}
