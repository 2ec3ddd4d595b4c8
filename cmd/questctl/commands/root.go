package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fruitytales/questsite/internal/funnel"
)

const defaultIntakeURL = "http://localhost:8080"

var (
	intakeURL string
	timeout   time.Duration
	logLevel  string

	logger *logrus.Logger
	client funnel.IntakeClient
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "questctl",
		Short:        "Fruity Tales signup and quest client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logger.SetLevel(level)

			if intakeURL == "" {
				return fmt.Errorf("intake URL required (--intake-url or INTAKE_URL)")
			}
			client = funnel.NewHTTPIntakeClient(intakeURL, &http.Client{Timeout: timeout})
			logger.WithField("intake_url", intakeURL).Debug("intake client ready")
			return nil
		},
	}

	defaultURL := os.Getenv("INTAKE_URL")
	if defaultURL == "" {
		defaultURL = defaultIntakeURL
	}
	root.PersistentFlags().StringVar(&intakeURL, "intake-url", defaultURL, "intake server base URL (env INTAKE_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", funnel.DefaultSubmitTimeout, "request timeout")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(subscribeCmd(), questCmd())
	return root
}
