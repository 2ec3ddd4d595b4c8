package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
)

type formPreset struct {
	source string
	tags   []string
}

var formPresets = map[string]formPreset{
	"hero": {source: subscriber.SourceHeroSection, tags: []string{subscriber.TagHeroSignup}},
	"demo": {source: subscriber.SourceDemoPage, tags: []string{subscriber.TagDemoEarlyAccess}},
	"site": {source: subscriber.SourceDefault},
}

// subscribe --email <addr>: one-shot signup, as submitted by a site form.
func subscribeCmd() *cobra.Command {
	var (
		email  string
		form   string
		source string
		tags   []string
	)
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Submit a single signup to the intake server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, ok := formPresets[form]
			if !ok {
				return fmt.Errorf("unknown --form %q (hero, demo, site)", form)
			}
			req := &subscriber.SubscribeRequest{Email: email, Source: preset.source, Tags: preset.tags}
			if cmd.Flags().Changed("source") {
				req.Source = source
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = tags
			}

			res, err := client.Subscribe(cmd.Context(), req)
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			case errors.Is(err, subscriber.ErrDuplicateEmail):
				fmt.Fprintln(cmd.OutOrStdout(), "Email already subscribed")
				return nil
			case errors.Is(err, subscriber.ErrInvalidEmail):
				return fmt.Errorf("invalid email address %q", email)
			default:
				logger.WithError(err).WithField("source", req.Source).Debug("subscribe failed")
				return fmt.Errorf("subscribe failed: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to subscribe")
	cmd.Flags().StringVar(&form, "form", "site", "form preset: hero, demo or site")
	cmd.Flags().StringVar(&source, "source", "", "override the preset source")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "override the preset tags (comma separated)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
