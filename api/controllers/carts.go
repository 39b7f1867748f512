package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionplace-backend/api/middleware"
	"github.com/angelmondragon/fashionplace-backend/api/responses"
	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
)

type guestMinter interface {
	Mint(ctx context.Context) (string, error)
}

type customerFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
}

// resolveCartIdentity maps the request's credentials to a cart identity. A
// bearer token wins over a session header; an authenticated user without a
// customer row cannot own carts.
func resolveCartIdentity(r *http.Request, customers customerFinder) (cart.Identity, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cart.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		if customers == nil {
			return cart.Identity{}, pkgerrors.New(pkgerrors.CodeInternal, "customer repository unavailable")
		}
		customer, err := customers.FindByUserID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cart.Identity{}, pkgerrors.New(pkgerrors.CodeForbidden, "customer account required")
			}
			return cart.Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
		}
		return cart.Identity{CustomerID: &customer.ID}, nil
	}
	return cart.Identity{SessionToken: middleware.SessionTokenFromContext(r.Context())}, nil
}

// CartCreate resolves the caller's open cart, creating one when none exists.
// Anonymous callers without a session token get one minted and returned next
// to the cart.
func CartCreate(svc cart.Service, customers customerFinder, sessions guestMinter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		identity, err := resolveCartIdentity(r, customers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minted := ""
		if !identity.IsCustomer() && identity.SessionToken == "" {
			if sessions == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
				return
			}
			minted, err = sessions.Mint(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mint guest session"))
				return
			}
			identity.SessionToken = minted
		}

		resolved, err := svc.ResolveOrCreate(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := map[string]any{"cart": resolved}
		if minted != "" {
			w.Header().Set(middleware.SessionTokenHeader, minted)
			body["session_token"] = minted
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, body)
	}
}

// CartFetch returns one cart with its lines and derived totals.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := parseCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.Get(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

// CartDelete abandons a cart and its lines.
func CartDelete(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := parseCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseCartID(r *http.Request) (uuid.UUID, error) {
	cartID, err := uuid.Parse(chi.URLParam(r, "cartId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id")
	}
	return cartID, nil
}
