package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"geocrypt/internal/anomaly"
	"geocrypt/internal/auth"
	"geocrypt/internal/models"
	"geocrypt/internal/policy"
	"geocrypt/internal/store"
)

type createEmployeeRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type updateEmployeeRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	IsActive *bool   `json:"is_active"`
}

type wfhDecisionRequest struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment"`
}

type policyConfigRequest struct {
	Latitude       float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64 `json:"longitude" validate:"min=-180,max=180"`
	Radius         float64 `json:"radius" validate:"required,gt=0"`
	AllowedNetwork string  `json:"allowed_network" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string  `json:"end_time" validate:"required,datetime=15:04"`
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.store.FindUserByEmail(req.Email); err == nil {
		a.writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.log.Error().Err(err).Msg("hash password")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleEmployee,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			a.writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		a.log.Error().Err(err).Msg("create employee")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().Str("username", user.Username).Msg("employee created")
	a.writeMessage(w, http.StatusCreated, "Employee created successfully")
}

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.store.ListEmployees()
	if err != nil {
		a.log.Error().Err(err).Msg("list employees")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]models.User, 0, len(employees))
	for _, e := range employees {
		out = append(out, e.Redacted())
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req updateEmployeeRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUser(username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user.Role != models.RoleEmployee) {
		a.writeError(w, http.StatusNotFound, "employee not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("load employee")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			a.log.Error().Err(err).Msg("hash password")
			a.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user.PasswordHash = hash
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := a.store.UpdateUser(user); err != nil {
		a.log.Error().Err(err).Msg("update employee")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeMessage(w, http.StatusOK, "Employee updated successfully")
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	user, err := a.store.GetUser(username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user.Role != models.RoleEmployee) {
		a.writeError(w, http.StatusNotFound, "employee not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("load employee")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := a.store.DeleteUser(username); err != nil {
		a.log.Error().Err(err).Msg("delete employee")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeMessage(w, http.StatusOK, "Employee deleted successfully")
}

func (a *API) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListAuditEntries()
	if err != nil {
		a.log.Error().Err(err).Msg("list access logs")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleListWFHRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := a.store.ListWFHRequests()
	if err != nil {
		a.log.Error().Err(err).Msg("list wfh requests")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if requests == nil {
		requests = []models.WFHRequest{}
	}
	a.writeJSON(w, http.StatusOK, requests)
}

func (a *API) handleDecideWFHRequest(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req wfhDecisionRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := a.store.DecideWFHRequest(username, req.Status, req.Comment)
	if errors.Is(err, store.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "request not found or already processed")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("decide wfh request")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().Str("username", username).Str("status", req.Status).Msg("wfh request decided")
	a.writeMessage(w, http.StatusOK, "Request "+req.Status)
}

func (a *API) handleGetPolicyConfig(w http.ResponseWriter, r *http.Request) {
	cfg, found, err := a.store.GetPolicyConfig()
	if err != nil {
		a.log.Error().Err(err).Msg("load policy config")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		a.writeError(w, http.StatusNotFound, "policy config not set")
		return
	}
	a.writeJSON(w, http.StatusOK, cfg)
}

func (a *API) handlePutPolicyConfig(w http.ResponseWriter, r *http.Request) {
	var req policyConfigRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StartTime > req.EndTime {
		a.writeError(w, http.StatusBadRequest, "start_time must not be after end_time")
		return
	}

	cfg := policy.Config{
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Radius:         req.Radius,
		AllowedNetwork: req.AllowedNetwork,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	}
	if err := a.store.PutPolicyConfig(cfg); err != nil {
		a.log.Error().Err(err).Msg("store policy config")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().Float64("radius", cfg.Radius).Str("network", cfg.AllowedNetwork).Msg("policy config updated")
	a.writeMessage(w, http.StatusOK, "Configuration updated successfully")
}

// handleEmployeeAnalytics fits a fresh anomaly model over one employee's
// audit history and returns the behavior report. The model is per-request
// state; nothing is shared across identities.
func (a *API) handleEmployeeAnalytics(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	entries, err := a.store.ListByIdentity(username)
	if err != nil {
		a.log.Error().Err(err).Msg("load audit history")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	detector := anomaly.NewDetector()
	detector.Fit(entries)
	report := detector.Analyze(entries)

	a.writeJSON(w, http.StatusOK, report)
}
