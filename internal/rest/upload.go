package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"electroCare/business/upload"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type UploadService interface {
	Upload(ctx context.Context, userID uint, body io.Reader) (upload.File, error)
}

type UploadHandler struct {
	uploadService UploadService
	timeout       time.Duration
}

func NewUploadHandler(uploadService UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		timeout:       30 * time.Second,
	}
}

// Upload accepts a multipart "file" field.
func (h *UploadHandler) Upload(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "missing file field"})
	}

	src, err := fh.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", err)
		return badRequest(c, err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	file, err := h.uploadService.Upload(ctx, userID, src)
	if err != nil {
		logger.Error("Failed to upload file", err, "user_id", userID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(file))
}
