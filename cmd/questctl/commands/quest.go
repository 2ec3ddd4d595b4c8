package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fruitytales/questsite/internal/funnel"
)

// quest: interactive funnel. Enter confirms a step, q closes the quest.
func questCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quest",
		Short: "Walk the join-the-quest funnel interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := funnel.NewController(client, funnel.Options{
				SubmitTimeout: timeout,
				Logger:        logger,
				OnStepComplete: func(step funnel.Step, total int) {
					logger.WithFields(logrus.Fields{"step": step, "completed": total}).Info("quest step complete")
				},
			})
			return runQuest(cmd, ctrl, bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}
}

func runQuest(cmd *cobra.Command, ctrl *funnel.Controller, in *bufio.Scanner, out io.Writer) error {
	for {
		st := ctrl.State()
		fmt.Fprintf(out, "\n[%s] %s\n", st.ProgressLabel(), st.CurrentStep.Title())

		if st.CurrentStep == funnel.StepComplete {
			fmt.Fprintln(out, "Thanks for joining the quest!")
			ctrl.Close()
			return nil
		}

		if url, ok := funnel.StepURL(st.CurrentStep); ok {
			fmt.Fprintf(out, "Open %s\nPress Enter when done (q to close): ", url)
		} else {
			fmt.Fprint(out, "Email (q to close): ")
		}

		if !in.Scan() {
			ctrl.Close()
			if err := in.Err(); err != nil {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(in.Text())
		if line == "q" {
			ctrl.Close()
			fmt.Fprintln(out, "Quest closed.")
			return nil
		}

		if st.CurrentStep != funnel.StepEmail {
			if _, err := ctrl.CompleteStep(st.CurrentStep); err != nil {
				return err
			}
			continue
		}

		ctrl.SetEmailDraft(line)
		if _, err := ctrl.SubmitEmail(cmd.Context()); err != nil {
			if errors.Is(err, funnel.ErrSubmissionFailed) {
				fmt.Fprintln(out, "Something went wrong, please try again.")
				continue
			}
			return err
		}
	}
}
