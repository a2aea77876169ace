package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kenailandsales/land-api/pkg/config"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/response"
	"github.com/kenailandsales/land-api/pkg/storage"
)

type mediaAttacher interface {
	AttachImage(ctx context.Context, userID, listingID, ref string) error
	AttachDocument(ctx context.Context, userID, listingID, ref string) error
}

// MediaHandler stores uploaded listing media and serves signed document
// downloads.
type MediaHandler struct {
	listings mediaAttacher
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	cfg      config.MediaConfig
}

// NewMediaHandler constructs MediaHandler.
func NewMediaHandler(listings mediaAttacher, store *storage.LocalStorage, signer *storage.SignedURLSigner, cfg config.MediaConfig) *MediaHandler {
	return &MediaHandler{listings: listings, store: store, signer: signer, cfg: cfg}
}

// UploadImage godoc
// @Summary Attach an image to an owned listing
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Listing ID"
// @Param file formData file true "Image file"
// @Success 201 {object} response.Envelope
// @Router /listings/{id}/images [post]
func (h *MediaHandler) UploadImage(c *gin.Context) {
	h.upload(c, h.listings.AttachImage, false)
}

// UploadDocument godoc
// @Summary Attach a document to an owned listing
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Listing ID"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Router /listings/{id}/documents [post]
func (h *MediaHandler) UploadDocument(c *gin.Context) {
	h.upload(c, h.listings.AttachDocument, true)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Media
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download token"))
		return
	}
	c.File(h.store.Path(relPath))
}

func (h *MediaHandler) upload(c *gin.Context, attach func(context.Context, string, string, string) error, signed bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listingID := c.Param("id")

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file required"))
		return
	}
	if h.cfg.MaxFileSizeBytes > 0 && file.Size > h.cfg.MaxFileSizeBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file too large"))
		return
	}
	if !h.mimeAllowed(file.Header.Get("Content-Type")) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported file type"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	name := fmt.Sprintf("%s/%s%s", listingID, uuid.NewString(), filepath.Ext(file.Filename))
	ref, err := h.store.SaveStream(name, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file"))
		return
	}

	if err := attach(c.Request.Context(), claims.UserID, listingID, ref); err != nil {
		// A rejected upload must not leave the file on disk.
		_ = h.store.Delete(ref)
		response.Error(c, err)
		return
	}

	data := gin.H{"ref": ref}
	if signed {
		token, expiresAt, err := h.signer.Generate(listingID, ref)
		if err == nil {
			data["download_token"] = token
			data["download_expires_at"] = expiresAt
		}
	}
	response.Created(c, data)
}

func (h *MediaHandler) mimeAllowed(mime string) bool {
	if len(h.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedMIMEs {
		if mime == allowed {
			return true
		}
	}
	return false
}
