package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/patungan/internal/bill"
	"github.com/noah-isme/patungan/internal/resilience"
)

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint with the
// receipt image attached. Outbound requests go through the resilience
// wrapper so transient upstream failures are retried and sustained failure
// opens the breaker.
type OpenAIClient struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    resilience.HTTPClient
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat respFormat    `json:"response_format"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the image to the vision model and parses the reply into a
// normalised bill. Distribution modes always default to equal here, whatever
// the model answers.
func (c *OpenAIClient) Extract(ctx context.Context, image []byte, mimeType, hint string) (bill.Bill, error) {
	if c == nil || c.APIKey == "" {
		return bill.Bill{}, fmt.Errorf("%w: api key not configured", ErrExtraction)
	}
	model := c.Model
	if model == "" {
		model = "gpt-4o"
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	parts := []contentPart{{Type: "text", Text: userPrompt}}
	if strings.TrimSpace(hint) != "" {
		parts = append(parts, contentPart{Type: "text", Text: strings.TrimSpace(hint)})
	}
	parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}})

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: parts},
		},
		MaxTokens:      1000,
		ResponseFormat: respFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("encode request: %w", err)
	}

	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return bill.Bill{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("%w: read response: %v", ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return bill.Bill{}, fmt.Errorf("%w: vision api status %d", ErrExtraction, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return bill.Bill{}, fmt.Errorf("%w: decode response: %v", ErrExtraction, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return bill.Bill{}, fmt.Errorf("%w: empty model response", ErrExtraction)
	}
	return ParseModelOutput([]byte(parsed.Choices[0].Message.Content))
}

// modelBill mirrors the JSON contract of the prompt. Pointer fields let
// missing numbers be told apart from zeroes.
type modelBill struct {
	Items          []modelItem `json:"items"`
	Subtotal       *float64    `json:"subtotal"`
	Tax            *float64    `json:"tax"`
	Tip            *float64    `json:"tip"`
	Total          *float64    `json:"total"`
	RestaurantName string      `json:"restaurantName"`
	IsReceipt      *bool       `json:"isReceipt"`
}

type modelItem struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *float64 `json:"quantity"`
}

// ParseModelOutput validates the model's JSON answer and converts it into a
// normalised bill. Non-JSON output is an extraction failure; JSON that lacks
// the required numeric fields is an invalid bill.
func ParseModelOutput(content []byte) (bill.Bill, error) {
	var parsed modelBill
	if err := json.Unmarshal(content, &parsed); err != nil {
		return bill.Bill{}, fmt.Errorf("%w: model output is not valid JSON", ErrExtraction)
	}
	if parsed.Items == nil {
		return bill.Bill{}, fmt.Errorf("items must be an array: %w", bill.ErrInvalidBill)
	}
	if parsed.Subtotal == nil || parsed.Tax == nil || parsed.Tip == nil || parsed.Total == nil {
		return bill.Bill{}, fmt.Errorf("numeric fields are missing: %w", bill.ErrInvalidBill)
	}

	items := make([]bill.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it.Name == "" || it.Price == nil {
			return bill.Bill{}, fmt.Errorf("invalid item format: %w", bill.ErrInvalidBill)
		}
		qty := 1
		if it.Quantity != nil {
			qty = int(*it.Quantity + 0.5)
		}
		items = append(items, bill.Item{
			Name:     it.Name,
			Price:    *it.Price,
			Quantity: qty,
		})
	}

	isReceipt := true
	if parsed.IsReceipt != nil {
		isReceipt = *parsed.IsReceipt
	}
	out, err := bill.Normalize(bill.Bill{
		Items:           items,
		Subtotal:        *parsed.Subtotal,
		Tax:             *parsed.Tax,
		Tip:             *parsed.Tip,
		Total:           *parsed.Total,
		TaxDistribution: bill.DistributionEqual,
		TipDistribution: bill.DistributionEqual,
		RestaurantName:  parsed.RestaurantName,
		IsReceipt:       isReceipt,
	})
	if err != nil {
		return bill.Bill{}, err
	}
	return out, nil
}

var _ Extractor = (*OpenAIClient)(nil)
