package mailing

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/configs"
	"github.com/fruitytales/questsite/internal/core/ports"
)

// NewProvider returns the configured provider, or nil when the fan-out is
// disabled (no API key).
func NewProvider(cfg *configs.MailingProviderConfig, logger *logrus.Logger) (ports.MailingListProvider, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case configs.MailingProviderMailerLite, "":
		return NewMailerLiteProvider(cfg.APIKey, cfg.MailerLiteBaseURL, &http.Client{Timeout: cfg.Timeout}, logger), nil
	case configs.MailingProviderSendGrid:
		return NewSendGridProvider(&SendGridConfig{
			APIKey:        cfg.APIKey,
			Host:          cfg.SendGridHost,
			ListIDs:       cfg.SendGridListIDs,
			SourceFieldID: cfg.SendGridSourceFieldID,
			TagsFieldID:   cfg.SendGridTagsFieldID,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown mailing provider %q", cfg.Provider)
	}
}
