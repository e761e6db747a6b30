// Package extract turns a receipt photo into a structured bill using an
// external vision model. The model is an opaque collaborator: it either
// returns the bill shape or the call fails with ErrExtraction; a bill with
// IsReceipt=false is a valid result meaning the image was not a receipt.
package extract

import (
	"context"
	"errors"

	"github.com/noah-isme/patungan/internal/bill"
)

// ErrExtraction indicates the upstream vision model failed or returned a
// malformed response. Retryable, optionally with an extra user hint.
var ErrExtraction = errors.New("receipt extraction failed")

// Extractor analyses a receipt image. The optional hint is free text from
// the user to steer a retry ("the total is handwritten at the bottom").
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType, hint string) (bill.Bill, error)
}
