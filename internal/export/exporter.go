package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/mailexport/internal/extract"
	"github.com/teemow/mailexport/internal/gmail"
	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

// MailClient is the part of the Gmail adapter the exporter depends on.
type MailClient interface {
	ResolveLabelIDs(ctx context.Context, names []string) ([]string, error)
	SearchMessages(ctx context.Context, req gmail.SearchRequest) (*gmail.SearchPage, error)
	GetMessageMetadata(ctx context.Context, id string) (*gmail.MessageMeta, error)
}

// Filter kinds reported in metrics.
const (
	FilterLabels = "labels"
	FilterQuery  = "query"
	FilterAll    = "all"
)

// Filter selects the messages to export. Labels are names, not IDs.
type Filter struct {
	Query  string
	Labels []string
}

// Kind names the filter for metrics and logs.
func (f Filter) Kind() string {
	switch {
	case len(f.Labels) > 0:
		return FilterLabels
	case f.Query != "":
		return FilterQuery
	default:
		return FilterAll
	}
}

// Options configures a single export run.
type Options struct {
	Filter Filter
	// Shape defaults to Contacts.
	Shape RowShape
	// PageSize is passed to the search; zero uses the API default.
	PageSize int64
	// Location renders timestamps; nil means time.Local.
	Location *time.Location
}

// Stats summarizes a run.
type Stats struct {
	Rows    int
	Skipped int
	Pages   int
	// Anomalies counts written rows that needed a fallback value.
	Anomalies int
	// Estimate is the API's approximate result count from the first page.
	Estimate int64
}

// Exporter runs exports against a mail client.
type Exporter struct {
	client  MailClient
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// NewExporter creates an exporter. A nil logger discards output and nil
// metrics disable recording.
func NewExporter(client MailClient, logger logging.Logger, metrics *instrumentation.Metrics) *Exporter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Exporter{client: client, logger: logger, metrics: metrics}
}

// Run writes the header row and one row per matching message to w.
// The returned Stats are valid even when an error aborts the run.
func (e *Exporter) Run(ctx context.Context, w io.Writer, opts Options) (Stats, error) {
	var stats Stats

	shape := opts.Shape
	if shape == nil {
		shape = Contacts
	}
	filterKind := opts.Filter.Kind()

	ctx, span := instrumentation.StartSpan(ctx, "export.run",
		attribute.String(instrumentation.SpanAttrShape, shape.Name()),
		attribute.String("export.filter", filterKind),
	)
	defer span.End()
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		e.logger.Debug("Export traced", "trace_id", traceID)
	}

	start := time.Now()
	err := e.run(ctx, w, opts, shape, filterKind, &stats)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrRows, stats.Rows))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		e.logger.Error("Export failed",
			logging.Status(logging.StatusError),
			logging.Count(stats.Rows),
			logging.Duration(elapsed),
			logging.Err(err))
		return stats, err
	}
	instrumentation.SetSpanSuccess(span)

	e.logger.Info("Export finished",
		logging.Status(logging.StatusSuccess),
		logging.Count(stats.Rows),
		logging.Duration(elapsed),
		"skipped", stats.Skipped,
		"anomalies", stats.Anomalies,
		"pages", stats.Pages)
	return stats, nil
}

func (e *Exporter) run(ctx context.Context, w io.Writer, opts Options, shape RowShape, filterKind string, stats *Stats) error {
	rows := NewRowWriter(w, shape)
	if err := rows.WriteHeader(); err != nil {
		return err
	}

	req := gmail.SearchRequest{
		Query:    opts.Filter.Query,
		PageSize: opts.PageSize,
	}
	if len(opts.Filter.Labels) > 0 {
		ids, err := e.client.ResolveLabelIDs(ctx, opts.Filter.Labels)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRemote, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: %v", ErrNoLabels, opts.Filter.Labels)
		}
		req.LabelIDs = ids
	}

	e.logger.Debug("Starting export",
		"shape", shape.Name(),
		"filter", filterKind,
		logging.Query(req.Query),
		logging.Labels(opts.Filter.Labels))

	for {
		page, err := e.client.SearchMessages(ctx, req)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRemote, err)
		}
		stats.Pages++
		e.metrics.RecordPage(ctx)

		if stats.Pages == 1 {
			stats.Estimate = page.ResultSizeEstimate
			e.logger.Info("Search started", "estimate", page.ResultSizeEstimate)
		}

		for _, ref := range page.Messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.exportMessage(ctx, rows, ref.ID, opts.Location, shape.Name(), filterKind, stats); err != nil {
				return err
			}
		}
		e.logger.Info("Page exported", logging.Page(stats.Pages), logging.Count(stats.Rows))
		instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "page.exported",
			attribute.Int("export.page", stats.Pages),
			attribute.Int(instrumentation.SpanAttrRows, stats.Rows))

		if page.NextPageToken == "" {
			return nil
		}
		req.PageToken = page.NextPageToken
	}
}

func (e *Exporter) exportMessage(ctx context.Context, rows *RowWriter, id string, loc *time.Location, shape, filterKind string, stats *Stats) error {
	meta, err := e.client.GetMessageMetadata(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	res, err := extract.Extract(meta, loc)
	if errors.Is(err, extract.ErrMissingFrom) {
		stats.Skipped++
		e.metrics.RecordRow(ctx, shape, instrumentation.RowResultSkipped, filterKind)
		e.logger.Warn("Skipping message without From header", logging.MessageID(id))
		return nil
	}
	if err != nil {
		return err
	}

	if len(res.Anomalies) > 0 {
		stats.Anomalies++
		e.logger.Debug("Used fallback values",
			logging.MessageID(id),
			logging.UserHash(res.Row.Email),
			logging.Domain(res.Row.Email),
			"anomalies", fmt.Sprint(res.Anomalies))
	}

	if err := rows.Write(res.Row); err != nil {
		return err
	}
	stats.Rows++
	e.metrics.RecordRow(ctx, shape, instrumentation.RowResultWritten, filterKind)
	return nil
}
