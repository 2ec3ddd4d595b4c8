package mailing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/ports"
)

const sendGridContactsEndpoint = "/v3/marketing/contacts"

// SendGridConfig holds the Marketing Contacts settings. Custom field IDs are
// the e<N>_T identifiers SendGrid assigns; blank IDs are left out.
type SendGridConfig struct {
	APIKey        string
	Host          string
	ListIDs       []string
	SourceFieldID string
	TagsFieldID   string
}

// SendGridProvider upserts contacts through the SendGrid Marketing Contacts API.
type SendGridProvider struct {
	config *SendGridConfig
	send   func(ctx context.Context, req rest.Request) (*rest.Response, error)
	logger *logrus.Logger
}

var _ ports.MailingListProvider = (*SendGridProvider)(nil)

type sendGridUpsert struct {
	ListIDs  []string          `json:"list_ids,omitempty"`
	Contacts []sendGridContact `json:"contacts"`
}

type sendGridContact struct {
	Email        string            `json:"email"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func NewSendGridProvider(config *SendGridConfig, logger *logrus.Logger) *SendGridProvider {
	return &SendGridProvider{config: config, send: sendgrid.MakeRequestWithContext, logger: logger}
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

func (p *SendGridProvider) AddSubscriber(ctx context.Context, contact ports.MailingListContact) error {
	fields := map[string]string{}
	if p.config.SourceFieldID != "" {
		fields[p.config.SourceFieldID] = contact.Source
	}
	if p.config.TagsFieldID != "" {
		fields[p.config.TagsFieldID] = contact.JoinedTags()
	}
	if len(fields) == 0 {
		fields = nil
	}

	body, err := json.Marshal(sendGridUpsert{
		ListIDs:  p.config.ListIDs,
		Contacts: []sendGridContact{{Email: contact.Email, CustomFields: fields}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid: encode contact: %w", err)
	}

	req := sendgrid.GetRequest(p.config.APIKey, sendGridContactsEndpoint, p.config.Host)
	req.Method = rest.Put
	req.Headers["Content-Type"] = "application/json"
	req.Body = body

	resp, err := p.send(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"status_code": resp.StatusCode, "source": contact.Source}).Debug("sendgrid: contact upsert accepted")
	}
	return nil
}
