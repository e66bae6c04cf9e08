package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/mailexport/internal/gmail"
)

func newLabelsCmd() *cobra.Command {
	var userOnly bool

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List the labels of the mailbox",
		Long: `List all labels with their IDs and types. The names can be passed to
export --labels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sess, err := newSession(ctx, cmd, "labels")
			if err != nil {
				return err
			}
			defer sess.close()

			client, err := sess.gmailClient(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			labels, err := client.ListLabels(ctx)
			if err != nil {
				return err
			}
			return printLabels(cmd, labels, userOnly)
		},
	}

	cmd.Flags().BoolVar(&userOnly, "user", false, "Only list user-created labels")

	return cmd
}

func printLabels(cmd *cobra.Command, labels []gmail.Label, userOnly bool) error {
	if userOnly {
		labels = slices.DeleteFunc(slices.Clone(labels), func(l gmail.Label) bool {
			return l.Type != "user"
		})
	}
	slices.SortFunc(labels, func(a, b gmail.Label) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tTYPE")
	for _, l := range labels {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Name, l.ID, l.Type)
	}
	return tw.Flush()
}
