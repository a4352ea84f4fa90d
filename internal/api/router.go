package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"geocrypt/internal/auth"
	"geocrypt/internal/models"
)

// Router builds the full route table under /api. Everything except login,
// OTP verification and the health probe requires a bearer token.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify-otp", a.handleVerifyOTP).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(a.tokens.Middleware)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.RequireRole(models.RoleAdmin, h)
	}
	employee := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.RequireRole(models.RoleEmployee, h)
	}

	protected.HandleFunc("/admin/employees", admin(a.handleCreateEmployee)).Methods(http.MethodPost)
	protected.HandleFunc("/admin/employees", admin(a.handleListEmployees)).Methods(http.MethodGet)
	protected.HandleFunc("/admin/employees/{username}", admin(a.handleUpdateEmployee)).Methods(http.MethodPut)
	protected.HandleFunc("/admin/employees/{username}", admin(a.handleDeleteEmployee)).Methods(http.MethodDelete)
	protected.HandleFunc("/admin/access-logs", admin(a.handleListAccessLogs)).Methods(http.MethodGet)
	protected.HandleFunc("/admin/wfh-requests", admin(a.handleListWFHRequests)).Methods(http.MethodGet)
	protected.HandleFunc("/admin/wfh-requests/{username}", admin(a.handleDecideWFHRequest)).Methods(http.MethodPut)
	protected.HandleFunc("/admin/geofence-config", admin(a.handleGetPolicyConfig)).Methods(http.MethodGet)
	protected.HandleFunc("/admin/geofence-config", admin(a.handlePutPolicyConfig)).Methods(http.MethodPut)
	protected.HandleFunc("/admin/analytics/{username}", admin(a.handleEmployeeAnalytics)).Methods(http.MethodGet)

	protected.HandleFunc("/files/upload", admin(a.handleUploadFile)).Methods(http.MethodPost)
	protected.HandleFunc("/files", a.handleListFiles).Methods(http.MethodGet)
	protected.HandleFunc("/files/access", a.handleAccessFile).Methods(http.MethodPost)

	protected.HandleFunc("/wfh-request", employee(a.handleSubmitWFHRequest)).Methods(http.MethodPost)
	protected.HandleFunc("/wfh-request/status", employee(a.handleWFHStatus)).Methods(http.MethodGet)

	return r
}
