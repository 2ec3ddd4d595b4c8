package configs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitytales/questsite/configs"
)

func TestLoad_RequiresDatabaseCredential(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PASSWORD", "")

	_, err := configs.Load()
	require.Error(t, err)
}

func TestLoad_BuildsDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "quest")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.DSN, "host=db")
	assert.Contains(t, cfg.Database.DSN, "password=secret")
	assert.Contains(t, cfg.Database.DSN, "dbname=quest")
}

func TestLoad_MailingProviderIsOptional(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("MAILING_PROVIDER_API_KEY", "")
	t.Setenv("MAILERLITE_API_KEY", "")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Mailing.Enabled())
	assert.Equal(t, configs.MailingProviderMailerLite, cfg.Mailing.Provider)
	assert.Equal(t, 10*time.Second, cfg.Mailing.Timeout)
}

func TestLoad_MailerLiteKeyFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("MAILING_PROVIDER_API_KEY", "")
	t.Setenv("MAILERLITE_API_KEY", "ml-key")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Mailing.Enabled())
	assert.Equal(t, "ml-key", cfg.Mailing.APIKey)
}

func TestLoad_SendGridListIDs(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("MAILING_PROVIDER", "SendGrid")
	t.Setenv("MAILING_PROVIDER_API_KEY", "sg-key")
	t.Setenv("SENDGRID_LIST_IDS", "list-a, ,list-b")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Equal(t, configs.MailingProviderSendGrid, cfg.Mailing.Provider)
	assert.Equal(t, []string{"list-a", "list-b"}, cfg.Mailing.SendGridListIDs)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("MAILING_PROVIDER", "carrier-pigeon")

	_, err := configs.Load()
	require.Error(t, err)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")
	cfg, err = configs.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.Server.TrustedProxies)
}
