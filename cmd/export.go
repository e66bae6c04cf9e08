package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mailexport/internal/export"
	"github.com/teemow/mailexport/internal/logging"
)

// stdoutPath selects standard output as the CSV destination.
const stdoutPath = "-"

type exportOptions struct {
	query    string
	labels   []string
	label    string
	out      string
	format   string
	pageSize int64
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [label...]",
		Short: "Export sender, subject and date of matching messages to CSV",
		Long: `Search the mailbox with a Gmail query or a set of labels and write one CSV
row per matching message.

The contacts format writes "First name,Last name,Email,Subject,Time", the
senders format writes the raw "From,Subject". Label names are matched without
regard to case; positional arguments are added to --labels.

Examples:
  mailexport export -q "from:newsletter@example.com newer_than:30d"
  mailexport export --labels Work,Clients --out clients.csv
  mailexport export Receipts --format senders --out -`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Search query using Gmail search syntax. Can also use MAILEXPORT_QUERY env var.")
	cmd.Flags().StringSliceVar(&opts.labels, "labels", nil, "Label names to export (comma-separated, repeatable). Can also use MAILEXPORT_LABELS env var.")
	cmd.Flags().StringVar(&opts.label, "label", "", "A single label name to export")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "emails.csv", `Output CSV file, "-" for standard output. Can also use MAILEXPORT_OUT env var.`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", export.ShapeContacts, "Row format: contacts or senders. Can also use MAILEXPORT_FORMAT env var.")
	cmd.Flags().Int64Var(&opts.pageSize, "page-size", 0, "Messages per search page (API default when 0, at most 500)")

	return cmd
}

// filter combines the query and label options. Query and labels exclude each
// other.
func (o exportOptions) filter(args []string) (export.Filter, error) {
	labels := append([]string(nil), o.labels...)
	if o.label != "" {
		labels = append(labels, o.label)
	}
	labels = append(labels, args...)

	if o.query != "" && len(labels) > 0 {
		return export.Filter{}, errors.New("use either --query or labels, not both")
	}
	return export.Filter{Query: o.query, Labels: labels}, nil
}

func runExport(cmd *cobra.Command, opts exportOptions, args []string) (err error) {
	envString(cmd, "query", "MAILEXPORT_QUERY", &opts.query)
	envList(cmd, "labels", "MAILEXPORT_LABELS", &opts.labels)
	envString(cmd, "out", "MAILEXPORT_OUT", &opts.out)
	envString(cmd, "format", "MAILEXPORT_FORMAT", &opts.format)

	shape, err := export.ParseShape(opts.format)
	if err != nil {
		return err
	}
	filter, err := opts.filter(args)
	if err != nil {
		return err
	}
	if opts.pageSize < 0 || opts.pageSize > 500 {
		return fmt.Errorf("--page-size must be between 0 and 500, got %d", opts.pageSize)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := newSession(ctx, cmd, "export")
	if err != nil {
		return err
	}
	defer sess.close()

	client, err := sess.gmailClient(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(opts.out, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", opts.out, cerr)
		}
	}()

	sess.logger.Info("Exporting messages",
		logging.Path(opts.out),
		"format", shape.Name(),
		logging.Query(filter.Query),
		logging.Labels(filter.Labels))

	exporter := export.NewExporter(client, logging.NewSlogAdapter(sess.logger), sess.provider.Metrics())
	stats, err := exporter.Run(ctx, w, export.Options{
		Filter:   filter,
		Shape:    shape,
		PageSize: opts.pageSize,
	})
	if err != nil {
		return fmt.Errorf("export stopped after %d rows: %w", stats.Rows, err)
	}

	summary := cmd.OutOrStdout()
	if opts.out == stdoutPath {
		summary = cmd.ErrOrStderr()
	}
	fmt.Fprintf(summary, "Finished, wrote %d emails to %s", stats.Rows, opts.out)
	if stats.Skipped > 0 {
		fmt.Fprintf(summary, " (%d skipped without sender)", stats.Skipped)
	}
	fmt.Fprintln(summary)
	return nil
}

// openOutput opens the CSV destination. The returned close function is a
// no-op for standard output.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == stdoutPath {
		return stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
