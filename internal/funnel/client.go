package funnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
)

const subscribePath = "/api/subscribe"

// ErrIntakeServer is returned when the intake endpoint answers with a status
// other than 200, 400 or 409.
var ErrIntakeServer = errors.New("intake server error")

// IntakeClient submits a subscription. Implementations report a rejected email
// with subscriber.ErrInvalidEmail and an existing one with
// subscriber.ErrDuplicateEmail. ports.SubscriptionService satisfies it, so the
// funnel can run in-process as well as over HTTP.
type IntakeClient interface {
	Subscribe(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error)
}

// HTTPIntakeClient calls POST /api/subscribe on a running intake server.
type HTTPIntakeClient struct {
	baseURL string
	client  *rest.Client
}

var _ IntakeClient = (*HTTPIntakeClient)(nil)

type intakeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewHTTPIntakeClient(baseURL string, httpClient *http.Client) *HTTPIntakeClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPIntakeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &rest.Client{HTTPClient: httpClient},
	}
}

func (c *HTTPIntakeClient) Subscribe(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error) {
	if req == nil {
		return nil, subscriber.ErrInvalidEmail
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode subscribe request: %w", err)
	}

	resp, err := c.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.baseURL + subscribePath,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe request failed: %w", err)
	}

	var out intakeResponse
	// Error pages from proxies are not JSON; the status code alone decides.
	_ = json.Unmarshal([]byte(resp.Body), &out)

	switch resp.StatusCode {
	case http.StatusOK:
		return &subscriber.SubscribeResult{Message: out.Message}, nil
	case http.StatusBadRequest:
		return nil, subscriber.ErrInvalidEmail
	case http.StatusConflict:
		return nil, subscriber.ErrDuplicateEmail
	default:
		if out.Error != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrIntakeServer, resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrIntakeServer, resp.StatusCode)
	}
}
