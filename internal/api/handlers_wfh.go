package api

import (
	"errors"
	"net/http"
	"time"

	"geocrypt/internal/models"
	"geocrypt/internal/store"
)

type wfhSubmitRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type wfhStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *API) handleSubmitWFHRequest(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req wfhSubmitRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = a.store.SubmitWFHRequest(models.WFHRequest{
		Username:    user.Username,
		Reason:      req.Reason,
		RequestedAt: time.Now().UTC(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		a.writeError(w, http.StatusBadRequest, "you already have a pending request")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("submit wfh request")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().Str("username", user.Username).Msg("wfh request submitted")
	a.writeMessage(w, http.StatusOK, "Work from home request submitted")
}

func (a *API) handleWFHStatus(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, err := a.store.GetWFHRequest(user.Username)
	if errors.Is(err, store.ErrNotFound) {
		a.writeJSON(w, http.StatusOK, wfhStatusResponse{
			Status:  "none",
			Message: "No work from home request found",
		})
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("load wfh request")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.writeJSON(w, http.StatusOK, req)
}
