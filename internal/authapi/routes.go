package authapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает /auth/* на роутер; authMW защищает только /auth/me.
func RegisterRoutes(r *mux.Router, h *Handler, authMW mux.MiddlewareFunc) {
	sub := r.PathPrefix("/auth").Subrouter()

	sub.HandleFunc("/google/login", h.GoogleLogin).Methods(http.MethodGet)
	sub.HandleFunc("/google/callback", h.GoogleCallback).Methods(http.MethodGet)

	sub.HandleFunc("/magic/request", h.MagicRequest).Methods(http.MethodPost)
	sub.HandleFunc("/magic/verify", h.MagicVerify).Methods(http.MethodPost)

	sub.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	sub.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	sub.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	me := r.PathPrefix("/auth").Subrouter()
	me.Use(authMW)
	me.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}
