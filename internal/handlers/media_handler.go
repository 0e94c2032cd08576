package handlers

import (
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/looking-sharp/Media-Management-Microservice/internal/metrics"
	service "github.com/looking-sharp/Media-Management-Microservice/internal/services"
	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

type Handler struct {
	svc          *service.MediaService
	log          *zap.SugaredLogger
	maxFileBytes int64
}

func NewHandler(svc *service.MediaService, log *zap.SugaredLogger, maxFileBytes int64) *Handler {
	return &Handler{svc: svc, log: log, maxFileBytes: maxFileBytes}
}

// POST /upload (multipart/form-data 'file')
func (h *Handler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "file not provided")
	}
	if err := utils.ValidateFileHeader(fileHeader, h.maxFileBytes); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	}
	f, err := fileHeader.Open()
	if err != nil {
		return utils.JSONError(c, fiber.StatusInternalServerError, "cannot open file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return utils.JSONError(c, fiber.StatusInternalServerError, "cannot read file")
	}

	// the client header is a hint only; sniff when it is missing
	ct := fileHeader.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}

	media, err := h.svc.Upload(c.Context(), fileHeader.Filename, ct, data)
	if errors.Is(err, utils.ErrDecode) || errors.Is(err, utils.ErrUnsupportedFormat) {
		metrics.UploadsTotal.WithLabelValues("image", "client_error").Inc()
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid image file: "+err.Error())
	}
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(kindOf(ct), "server_error").Inc()
		h.log.Errorw("upload failed", "file", fileHeader.Filename, "err", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "upload failed")
	}
	metrics.UploadsTotal.WithLabelValues(kindOf(ct), "ok").Inc()
	return utils.JSONSuccess(c, fiber.StatusOK, media)
}

// GET /access/:shortId — fetch from the backend and stream bytes through.
func (h *Handler) Access(c *fiber.Ctx) error {
	body, contentType, err := h.svc.Access(c.Context(), c.Params("shortId"))
	if errors.Is(err, utils.ErrNotFound) {
		return utils.JSONError(c, fiber.StatusBadRequest, "media not found")
	}
	if err != nil {
		h.log.Errorw("access failed", "short_id", c.Params("shortId"), "err", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "file unavailable")
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	// fasthttp closes the stream once the body is written
	return c.SendStream(body)
}

// GET /access-link/:shortId — resolve to a direct link, no content fetch.
func (h *Handler) AccessLink(c *fiber.Ctx) error {
	link, err := h.svc.AccessLink(c.Context(), c.Params("shortId"))
	if errors.Is(err, utils.ErrNotFound) {
		return utils.JSONError(c, fiber.StatusBadRequest, "media not found")
	}
	if err != nil {
		h.log.Errorw("access-link failed", "short_id", c.Params("shortId"), "err", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "link unavailable")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"link": link})
}

// POST /delete/:shortId
func (h *Handler) Delete(c *fiber.Ctx) error {
	shortID := c.Params("shortId")
	err := h.svc.Delete(c.Context(), shortID)
	if errors.Is(err, utils.ErrNotFound) {
		metrics.DeletesTotal.WithLabelValues("not_found").Inc()
		return utils.JSONError(c, fiber.StatusBadRequest, "media not found")
	}
	var partial *utils.PartialDeleteError
	if errors.As(err, &partial) {
		// distinct surface so operators can reconcile; never swallowed
		metrics.DeletesTotal.WithLabelValues("partial_" + partial.Stage).Inc()
		h.log.Errorw("partial delete", "short_id", shortID, "stage", partial.Stage, "err", partial.Err)
		return utils.JSONError(c, fiber.StatusInternalServerError, partial.Error())
	}
	if err != nil {
		metrics.DeletesTotal.WithLabelValues("error").Inc()
		return utils.JSONError(c, fiber.StatusInternalServerError, "delete failed")
	}
	metrics.DeletesTotal.WithLabelValues("ok").Inc()
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": shortID})
}

// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Media Management Microservice Online"})
}

func kindOf(contentType string) string {
	if len(contentType) >= 6 && contentType[:6] == "image/" {
		return "image"
	}
	return "file"
}
