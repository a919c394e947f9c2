package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/logging"
	"github.com/avern/mediavault/internal/server/models"
	"github.com/avern/mediavault/internal/server/services"
)

// assetDTO is the wire representation of an asset. Storage paths stay
// server-side.
type assetDTO struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256,omitempty"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAssetDTO(a *models.Asset) assetDTO {
	return assetDTO{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Filename:  a.Filename,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		SHA256:    a.SHA256,
		Status:    a.Status,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Handler hosts the public HTTP operations on top of the asset and
// download services.
type Handler struct {
	assets    *services.AssetService
	downloads *services.DownloadService
	logger    logging.Logger
}

func NewHandler(assets *services.AssetService, downloads *services.DownloadService, logger logging.Logger) *Handler {
	return &Handler{
		assets:    assets,
		downloads: downloads,
		logger:    logger.With("module", "httpapi"),
	}
}

// Routes registers every operation on a fresh mux, all behind the auth
// middleware.
func (h *Handler) Routes(secretKey []byte) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/uploads", h.createUpload)
	mux.HandleFunc("POST /api/uploads/{assetID}/finalize", h.finalizeUpload)
	mux.HandleFunc("GET /api/assets", h.listAssets)
	mux.HandleFunc("PATCH /api/assets/{assetID}", h.renameAsset)
	mux.HandleFunc("DELETE /api/assets/{assetID}", h.deleteAsset)
	mux.HandleFunc("POST /api/assets/{assetID}/download", h.grantDownload)
	mux.HandleFunc("POST /api/assets/{assetID}/shares", h.shareAsset)
	mux.HandleFunc("DELETE /api/assets/{assetID}/shares/{recipientID}", h.revokeShare)
	mux.HandleFunc("POST /api/download-tokens/validate", h.validateToken)

	return authMiddleware(secretKey, mux)
}

type createUploadRequest struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type createUploadResponse struct {
	Asset       assetDTO  `json:"asset"`
	UploadURL   string    `json:"upload_url"`
	TicketNonce string    `json:"ticket_nonce"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) createUpload(w http.ResponseWriter, r *http.Request) {
	var req createUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.assets.CreateUploadTicket(r.Context(), userIDFromContext(r.Context()), req.Filename, req.MimeType, req.SizeBytes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createUploadResponse{
		Asset:       toAssetDTO(result.Asset),
		UploadURL:   result.UploadURL,
		TicketNonce: result.TicketNonce,
		ExpiresAt:   result.ExpiresAt,
	})
}

type finalizeUploadRequest struct {
	SHA256          string `json:"sha256"`
	ExpectedVersion int64  `json:"expected_version"`
}

func (h *Handler) finalizeUpload(w http.ResponseWriter, r *http.Request) {
	var req finalizeUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	asset, err := h.assets.FinalizeUpload(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()), req.SHA256, req.ExpectedVersion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

type listAssetsResponse struct {
	Items       []assetDTO `json:"items"`
	NextCursor  string     `json:"next_cursor,omitempty"`
	HasNextPage bool       `json:"has_next_page"`
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize := 0
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, common.ErrBadRequest)
			return
		}
		pageSize = n
	}

	page, err := h.assets.List(r.Context(), userIDFromContext(r.Context()), q.Get("cursor"), pageSize, q.Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]assetDTO, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, toAssetDTO(a))
	}

	writeJSON(w, http.StatusOK, listAssetsResponse{
		Items:       items,
		NextCursor:  page.NextCursor,
		HasNextPage: page.HasNextPage,
	})
}

type renameAssetRequest struct {
	Filename        string `json:"filename"`
	ExpectedVersion int64  `json:"expected_version"`
}

func (h *Handler) renameAsset(w http.ResponseWriter, r *http.Request) {
	var req renameAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	asset, err := h.assets.Rename(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()), req.Filename, req.ExpectedVersion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	expectedVersion, err := expectedVersionQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.assets.Delete(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()), expectedVersion); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type grantDownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) grantDownload(w http.ResponseWriter, r *http.Request) {
	grant, err := h.downloads.GrantDownload(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grantDownloadResponse{
		URL:       grant.URL,
		ExpiresAt: grant.ExpiresAt,
	})
}

type shareAssetRequest struct {
	RecipientID     string `json:"recipient_id"`
	CanDownload     bool   `json:"can_download"`
	ExpectedVersion int64  `json:"expected_version"`
}

func (h *Handler) shareAsset(w http.ResponseWriter, r *http.Request) {
	var req shareAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	asset, err := h.assets.Share(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()), req.RecipientID, req.CanDownload, req.ExpectedVersion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

func (h *Handler) revokeShare(w http.ResponseWriter, r *http.Request) {
	expectedVersion, err := expectedVersionQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	asset, err := h.assets.Revoke(r.Context(), r.PathValue("assetID"), userIDFromContext(r.Context()), r.PathValue("recipientID"), expectedVersion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	AssetID string `json:"asset_id"`
}

func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	assetID, err := h.downloads.ValidateAccessToken(r.Context(), req.Token, userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateTokenResponse{AssetID: assetID})
}

// expectedVersionQuery reads the guard version for bodyless (DELETE)
// mutations from the query string.
func expectedVersionQuery(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("expected_version")
	if raw == "" {
		return 0, common.ErrBadRequest
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, common.ErrBadRequest
	}
	return v, nil
}
