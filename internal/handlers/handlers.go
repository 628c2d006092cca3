package handlers

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/pokedex-api/internal/lifecycle"
	"github.com/Brownie44l1/pokedex-api/internal/metrics"
	"github.com/Brownie44l1/pokedex-api/internal/view"
)

// FormField is the multipart field carrying the uploaded image.
const FormField = "file"

type Handler struct {
	models  *lifecycle.Lifecycle
	page    *view.Page
	metrics *metrics.Metrics
}

func NewHandler(models *lifecycle.Lifecycle, page *view.Page, m *metrics.Metrics) *Handler {
	return &Handler{
		models:  models,
		page:    page,
		metrics: m,
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page.Bytes())
}

// Health reports whether /analyze is accepting requests.
func (h *Handler) Health(c *gin.Context) {
	state, err := h.models.State()
	if state == lifecycle.StateReady {
		c.JSON(http.StatusOK, HealthResponse{Status: state.String()})
		return
	}

	resp := HealthResponse{Status: state.String()}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusServiceUnavailable, resp)
}

// Analyze classifies the uploaded image and returns the top label.
func (h *Handler) Analyze(c *gin.Context) {
	classifier, err := h.models.Classifier()
	if err != nil {
		h.fail(c, err)
		return
	}

	header, err := c.FormFile(FormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, err)
			return
		}
		h.fail(c, fmt.Errorf("%w: no image file provided, use %q as the form field name", ErrBadInput, FormField))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: cannot open upload: %v", ErrBadInput, err))
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: unsupported or corrupt image: %v", ErrBadInput, err))
		return
	}

	slog.Debug("Received image",
		"filename", header.Filename,
		"bytes", header.Size,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	start := time.Now()
	pred, err := classifier.Classify(c.Request.Context(), img)
	h.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.Predictions.WithLabelValues(pred.Class).Inc()
	slog.Debug("Prediction", "class", pred.Class, "index", pred.Index, "confidence", pred.Confidence)

	c.JSON(http.StatusOK, AnalyzeResponse{Result: pred.Class})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		slog.Error("Prediction error", "error", err)
		msg = "inference failed"
	case http.StatusServiceUnavailable:
		msg = "model is not ready"
	case http.StatusRequestEntityTooLarge:
		msg = "upload too large"
	default:
		slog.Debug("Rejected request", "status", status, "error", err)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}
