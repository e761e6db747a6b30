package extract

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/patungan/internal/bill"
	"github.com/noah-isme/patungan/internal/common"
	"github.com/noah-isme/patungan/internal/obs"
)

// Handler exposes receipt analysis over HTTP.
type Handler struct {
	Extractor     Extractor
	MaxImageBytes int64
}

const defaultMaxImageBytes = 10 << 20

func (h *Handler) maxBytes() int64 {
	if h.MaxImageBytes <= 0 {
		return defaultMaxImageBytes
	}
	return h.MaxImageBytes
}

// Analyze accepts a multipart upload with an "image" file part and an
// optional "hint" text part, runs extraction and returns the normalised
// bill. A non-receipt image is a 422, not a server error.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.Extractor == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "extractor not configured", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes())
	if err := r.ParseMultipartForm(h.maxBytes()); err != nil {
		common.JSONError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds the upload size limit", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "no image provided", nil)
		return
	}
	defer func() { _ = file.Close() }()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "file must be an image", nil)
		return
	}
	image, err := io.ReadAll(file)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read image", nil)
		return
	}
	hint := r.FormValue("hint")

	start := time.Now()
	extracted, err := h.Extractor.Extract(r.Context(), image, mimeType, hint)
	obs.ObserveReceiptAnalyzeDuration(obs.DurationMillis(time.Since(start)))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !extracted.IsReceipt {
		obs.IncReceiptAnalyze("not_a_receipt")
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_A_RECEIPT", "the image does not look like a receipt", nil)
		return
	}
	obs.IncReceiptAnalyze("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": extracted})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		obs.IncReceiptAnalyze("error")
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
	case errors.Is(err, bill.ErrInvalidBill):
		obs.IncReceiptAnalyze("invalid_bill")
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_BILL", "the extracted bill is incomplete, retry or edit manually", nil)
	case errors.Is(err, ErrExtraction):
		obs.IncReceiptAnalyze("error")
		common.JSONError(w, http.StatusBadGateway, "EXTRACTION_FAILED", "receipt analysis failed, please retry", nil)
	default:
		obs.IncReceiptAnalyze("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to analyze receipt", nil)
	}
}
