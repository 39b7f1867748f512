package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fashionplace-backend/api/middleware"
	"github.com/angelmondragon/fashionplace-backend/api/responses"
	"github.com/angelmondragon/fashionplace-backend/api/validators"
	authsvc "github.com/angelmondragon/fashionplace-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/fashionplace-backend/pkg/errors"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
)

// AuthRegister creates a customer account and returns an access token. A
// guest session token in the request header folds that cart into the new
// account.
func AuthRegister(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Register(r.Context(), payload, guestToken(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// AuthLogin verifies credentials and returns an access token.
func AuthLogin(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), payload, guestToken(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

func guestToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(middleware.SessionTokenHeader))
}
