// Package api exposes the HTTP surface: authentication, admin management,
// file upload and the guarded decrypt path. Handlers are thin; decisions
// belong to internal/policy and cryptography to internal/crypto.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"geocrypt/internal/auth"
	"geocrypt/internal/mail"
	"geocrypt/internal/policy"
	"geocrypt/internal/store"
)

// API holds the handler dependencies.
type API struct {
	store     *store.Store
	tokens    *auth.TokenManager
	mailer    mail.Sender
	evaluator *policy.Evaluator
	validate  *validator.Validate
	log       zerolog.Logger
}

// New wires an API around its collaborators.
func New(st *store.Store, tokens *auth.TokenManager, mailer mail.Sender, log zerolog.Logger) *API {
	return &API{
		store:     st,
		tokens:    tokens,
		mailer:    mailer,
		evaluator: policy.NewEvaluator(),
		validate:  validator.New(),
		log:       log,
	}
}

// decode reads a JSON body into v and runs struct validation.
func (a *API) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid field %s (%s)", f.Field(), f.Tag())
		}
		return err
	}
	return nil
}
