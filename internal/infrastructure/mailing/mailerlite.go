package mailing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/ports"
)

const mailerLiteSubscribersPath = "/api/v2/subscribers"

// MailerLiteProvider adds subscribers through the MailerLite v2 API.
type MailerLiteProvider struct {
	apiKey  string
	baseURL string
	client  *rest.Client
	logger  *logrus.Logger
}

var _ ports.MailingListProvider = (*MailerLiteProvider)(nil)

type mailerLiteSubscriber struct {
	Email  string           `json:"email"`
	Fields mailerLiteFields `json:"fields"`
}

type mailerLiteFields struct {
	Source string `json:"source"`
	Tags   string `json:"tags"`
}

func NewMailerLiteProvider(apiKey, baseURL string, httpClient *http.Client, logger *logrus.Logger) *MailerLiteProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &MailerLiteProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &rest.Client{HTTPClient: httpClient},
		logger:  logger,
	}
}

func (p *MailerLiteProvider) Name() string { return "mailerlite" }

func (p *MailerLiteProvider) AddSubscriber(ctx context.Context, contact ports.MailingListContact) error {
	body, err := json.Marshal(mailerLiteSubscriber{
		Email: contact.Email,
		Fields: mailerLiteFields{
			Source: contact.Source,
			Tags:   contact.JoinedTags(),
		},
	})
	if err != nil {
		return fmt.Errorf("mailerlite: encode subscriber: %w", err)
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: p.baseURL + mailerLiteSubscribersPath,
		Headers: map[string]string{
			"Content-Type":        "application/json",
			"X-MailerLite-ApiKey": p.apiKey,
		},
		Body: body,
	}

	resp, err := p.client.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("mailerlite: request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mailerlite: unexpected status %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"status_code": resp.StatusCode, "source": contact.Source}).Debug("mailerlite: subscriber accepted")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
