package gmail

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailexport/internal/instrumentation"
	"github.com/teemow/mailexport/internal/logging"
)

// userID addresses the authenticated mailbox.
const userID = "me"

// MetadataHeaders are the headers requested for every message.
var MetadataHeaders = []string{"From", "Subject", "Date"}

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client that authorizes requests with httpClient.
// Extra options are applied after the HTTP client, e.g. option.WithEndpoint.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	all := make([]option.ClientOption, 0, len(opts)+1)
	all = append(all, option.WithHTTPClient(httpClient))
	all = append(all, opts...)

	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		logger: logging.Discard(),
	}, nil
}

// WithLogger sets the logger used for warnings and debug output.
func (c *Client) WithLogger(logger logging.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithMetrics sets the metrics recorder. nil disables recording.
func (c *Client) WithMetrics(metrics *instrumentation.Metrics) *Client {
	c.metrics = metrics
	return c
}

// ListLabels returns all labels of the mailbox.
func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	var res *gmail.ListLabelsResponse
	err := instrumentation.ObserveGoogleAPI(ctx, c.metrics, instrumentation.OperationListLabels, func(ctx context.Context) error {
		var err error
		res, err = c.svc.Labels.List(userID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// ResolveLabelIDs maps label names to IDs, matching names case-insensitively.
// Names that do not match any label are logged and left out; the IDs that did
// match are returned in request order without duplicates.
func (c *Client) ResolveLabelIDs(ctx context.Context, names []string) ([]string, error) {
	labels, err := c.ListLabels(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(labels))
	for _, l := range labels {
		key := strings.ToLower(l.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = l.ID
		}
	}

	ids := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	var missing []string
	for _, name := range names {
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(missing) > 0 {
		c.logger.Warn("Some labels were not found",
			"requested", len(names),
			"found", len(names)-len(missing),
			"missing", strings.Join(missing, ","))
	}
	c.logger.Debug("Resolved labels", logging.Labels(names), "ids", strings.Join(ids, ","))

	return ids, nil
}

// SearchMessages returns one page of message references.
func (c *Client) SearchMessages(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	var res *gmail.ListMessagesResponse
	err := instrumentation.ObserveGoogleAPI(ctx, c.metrics, instrumentation.OperationListMessages, func(ctx context.Context) error {
		call := c.svc.Messages.List(userID).Context(ctx)
		if req.Query != "" {
			call = call.Q(req.Query)
		}
		if len(req.LabelIDs) > 0 {
			call = call.LabelIds(req.LabelIDs...)
		}
		if req.PageToken != "" {
			call = call.PageToken(req.PageToken)
		}
		if req.PageSize > 0 {
			call = call.MaxResults(req.PageSize)
		}
		var err error
		res, err = call.Do()
		return err
	}, attribute.Bool(instrumentation.SpanAttrPageToken, req.PageToken != ""))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	page := &SearchPage{
		Messages:           make([]MessageRef, 0, len(res.Messages)),
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: res.ResultSizeEstimate,
	}
	for _, m := range res.Messages {
		page.Messages = append(page.Messages, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return page, nil
}

// GetMessageMetadata fetches the headers of a single message without its body.
func (c *Client) GetMessageMetadata(ctx context.Context, id string) (*MessageMeta, error) {
	var msg *gmail.Message
	err := instrumentation.ObserveGoogleAPI(ctx, c.metrics, instrumentation.OperationGetMessage, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(userID, id).
			Format("metadata").
			MetadataHeaders(MetadataHeaders...).
			Context(ctx).
			Do()
		return err
	}, attribute.String(instrumentation.SpanAttrMessageID, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	meta := &MessageMeta{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
		// the generated client decodes a missing internalDate as 0
		InternalDate: strconv.FormatInt(msg.InternalDate, 10),
	}
	if msg.Payload != nil {
		meta.Headers = make([]Header, 0, len(msg.Payload.Headers))
		for _, h := range msg.Payload.Headers {
			meta.Headers = append(meta.Headers, Header{Name: h.Name, Value: h.Value})
		}
	}
	return meta, nil
}
