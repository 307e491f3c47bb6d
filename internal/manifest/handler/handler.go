package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"indian-airlines-ivr/internal/apierrors"
	"indian-airlines-ivr/internal/manifest/processor"
	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
)

// uploadEnvelopeBytes is the room left for multipart headers or the JSON
// object around a document.
const uploadEnvelopeBytes = 4096

type Handler struct {
	processor      *processor.ManifestProcessor
	maxUploadBytes int64
	logger         *observability.Logger
}

func New(processor *processor.ManifestProcessor, maxUploadBytes int64, logger *observability.Logger) Handler {
	return Handler{
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// ValidateRequest is the JSON form of a validation upload.
type ValidateRequest struct {
	Document string `json:"document"`
	Filename string `json:"filename" binding:"max=255"`
}

// HandleGetManifest returns the deployed manifest
func (h *Handler) HandleGetManifest(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.processor.GetManifest(ctx)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// HandleGetReport returns the validation and drift report of the deployed
// manifest. An invalid manifest is still a successful report.
func (h *Handler) HandleGetReport(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.processor.Report(ctx)
	if err != nil {
		h.logger.Error(ctx, "failed to build manifest report", err)
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleValidate checks an uploaded manifest or go.mod, sent either as JSON
// or as a multipart "file" field.
func (h *Handler) HandleValidate(c *gin.Context) {
	ctx := c.Request.Context()

	if limit := h.bodyLimit(); limit > 0 {
		if c.Request.ContentLength > limit {
			apierrors.RespondWithError(c, processor.ErrDocumentTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	var (
		filename string
		data     []byte
	)
	if c.ContentType() == "multipart/form-data" {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			if isBodyTooLarge(err) {
				apierrors.RespondWithError(c, processor.ErrDocumentTooLarge)
				return
			}
			apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "multipart upload requires a file field"))
			return
		}
		if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
			apierrors.RespondWithError(c, processor.ErrDocumentTooLarge)
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			apierrors.RespondWithError(c, fmt.Errorf("failed to open upload: %w", err))
			return
		}
		defer f.Close()

		data, err = io.ReadAll(f)
		if err != nil {
			apierrors.RespondWithError(c, fmt.Errorf("failed to read upload: %w", err))
			return
		}
		filename = fileHeader.Filename
	} else {
		var req ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if isBodyTooLarge(err) {
				apierrors.RespondWithError(c, processor.ErrDocumentTooLarge)
				return
			}
			apierrors.RespondWithValidationError(c, err)
			return
		}
		filename, data = req.Filename, []byte(req.Document)
	}

	result, err := h.processor.ValidateDocument(ctx, filename, data)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	if !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bodyLimit caps the request body of an upload. JSON escaping can double
// the size of a document, so the cap is twice the document limit plus the
// envelope. Zero means no cap.
func (h *Handler) bodyLimit() int64 {
	if h.maxUploadBytes <= 0 {
		return 0
	}
	return 2*h.maxUploadBytes + uploadEnvelopeBytes
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// HandleRefreshReport drops the cached report so the next request rebuilds it
func (h *Handler) HandleRefreshReport(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.processor.InvalidateReport(ctx); err != nil {
		h.logger.Error(ctx, "failed to refresh manifest report", err)
		apierrors.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
