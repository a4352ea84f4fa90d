package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"geocrypt/internal/audit"
	"geocrypt/internal/crypto"
	"geocrypt/internal/models"
	"geocrypt/internal/policy"
	"geocrypt/internal/store"
)

// maxUploadBytes bounds in-memory multipart parsing.
const maxUploadBytes = 64 << 20

type uploadResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}

type accessRequest struct {
	FileID    string  `json:"file_id" validate:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Network   string  `json:"network"`
}

type accessDeniedResponse struct {
	Error       string             `json:"error"`
	Validations policy.Validations `json:"validations"`
}

// handleUploadFile encrypts the uploaded payload under a fresh per-file key
// and stores blob and metadata together. The key never appears in the
// response or the logs.
func (a *API) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	plaintext, err := io.ReadAll(file)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "unreadable file payload")
		return
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		a.log.Error().Err(err).Msg("generate file key")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	blob, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		a.log.Error().Err(err).Msg("encrypt file")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	uploader, _ := a.currentUser(r)
	meta := models.FileMetadata{
		FileID:        uuid.New().String(),
		Filename:      header.Filename,
		UploadedBy:    uploader.Username,
		UploadedAt:    time.Now().UTC(),
		Size:          int64(len(plaintext)),
		Encrypted:     true,
		EncryptionKey: crypto.EncodeKey(key),
	}
	if err := a.store.SaveFile(meta, blob); err != nil {
		a.log.Error().Err(err).Msg("store file")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().Str("file_id", meta.FileID).Str("filename", meta.Filename).Int64("size", meta.Size).Msg("file uploaded")
	a.writeJSON(w, http.StatusCreated, uploadResponse{
		Message: "File uploaded and encrypted",
		FileID:  meta.FileID,
	})
}

func (a *API) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := a.store.ListFiles()
	if err != nil {
		a.log.Error().Err(err).Msg("list files")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if files == nil {
		files = []models.FileMetadata{}
	}
	a.writeJSON(w, http.StatusOK, files)
}

// handleAccessFile is the guarded decrypt path: evaluate the access policy,
// record the decision, and only then decrypt. Admins skip evaluation (and
// therefore the audit trail, which records evaluated requests only).
func (a *API) handleAccessFile(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req accessRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if user.Role == models.RoleAdmin {
		a.serveDecryptedFile(w, req.FileID)
		return
	}

	overrideActive, err := a.store.HasActiveGrant(user.Username)
	if err != nil {
		a.log.Error().Err(err).Msg("load wfh grant")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// A missing config is not an error: the evaluator substitutes its
	// documented defaults.
	cfg, _, err := a.store.GetPolicyConfig()
	if err != nil {
		a.log.Error().Err(err).Msg("load policy config")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	decision := a.evaluator.Evaluate(policy.Request{
		Identity:  user.Username,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Network:   req.Network,
		FileID:    req.FileID,
	}, cfg, overrideActive)

	// Exactly one audit entry per evaluated request, allowed or not. An
	// unresolvable file leaves the filename empty; that is tolerated.
	filename := ""
	if meta, err := a.store.GetFileMetadata(req.FileID); err == nil {
		filename = meta.Filename
	}
	entry := audit.Entry{
		Identity:  user.Username,
		FileID:    req.FileID,
		Filename:  filename,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Location:  audit.Location{Lat: req.Latitude, Lon: req.Longitude},
		Network:   req.Network,
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
	}
	if err := a.store.Append(r.Context(), entry); err != nil {
		a.log.Error().Err(err).Msg("append audit entry")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info().
		Str("identity", user.Username).
		Str("file_id", req.FileID).
		Bool("allowed", decision.Allowed).
		Str("reason", decision.Reason).
		Msg("access request evaluated")

	if !decision.Allowed {
		a.writeJSON(w, http.StatusForbidden, accessDeniedResponse{
			Error:       decision.Reason,
			Validations: decision.Validations,
		})
		return
	}

	a.serveDecryptedFile(w, req.FileID)
}

// serveDecryptedFile decrypts a stored blob and streams the plaintext as an
// attachment. Crypto failures are hard failures: a tampered or truncated
// blob will not become valid on retry.
func (a *API) serveDecryptedFile(w http.ResponseWriter, fileID string) {
	meta, err := a.store.GetFileMetadata(fileID)
	if errors.Is(err, store.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("load file metadata")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	blob, err := a.store.GetFileBlob(fileID)
	if err != nil {
		a.log.Error().Err(err).Str("file_id", fileID).Msg("load file blob")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	key, err := crypto.DecodeKey(meta.EncryptionKey)
	if err != nil {
		// Stored key material is unreadable: a data-integrity fault on the
		// metadata, surfaced rather than papered over.
		a.log.Error().Err(err).Str("file_id", fileID).Msg("decode file key")
		a.writeError(w, http.StatusInternalServerError, "file key unreadable")
		return
	}

	plaintext, err := crypto.Decrypt(blob, key)
	if err != nil {
		a.log.Error().Err(err).Str("file_id", fileID).Msg("decrypt file")
		a.writeError(w, http.StatusInternalServerError, "file integrity check failed")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(plaintext); err != nil {
		a.log.Error().Err(err).Str("file_id", fileID).Msg("stream file")
	}
}
