package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors the ledger into one tab of a spreadsheet. Row 1 holds the
// header; data starts at row 2 in columns A:D.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// New creates a client over an already-configured Sheets endpoint.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// NewFromEnv creates a client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	credentialsJSON, err := loadCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, sheetName,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
}

func loadCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials", applog.FieldComponent, applog.ComponentSheets)
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file",
			applog.FieldComponent, applog.ComponentSheets,
			"path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) dataRange() string { return fmt.Sprintf("%s!A2:D", c.sheetName) }

// AppendRow adds t after the last data row. Values are sent RAW so the sheet
// keeps the DD-MM-YYYY text instead of reinterpreting it as a date.
func (c *Client) AppendRow(ctx context.Context, t core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: [][]any{toValues(t)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:D", c.sheetName), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.sheetName, err)
	}
	return nil
}

// Clear empties every data row. The header row is left alone.
func (c *Client) Clear(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.dataRange(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", c.dataRange(), err)
	}
	return nil
}

// ReplaceAll rewrites the tab as header plus items.
func (c *Client) ReplaceAll(ctx context.Context, items []core.Transaction) error {
	if err := c.Clear(ctx); err != nil {
		return err
	}
	values := make([][]any, 0, len(items)+1)
	values = append(values, toAny(core.Header))
	for _, t := range items {
		values = append(values, toValues(t))
	}
	rng := fmt.Sprintf("%s!A1:D%d", c.sheetName, len(values))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Sheet rewritten",
		applog.NewFields().
			WithComponent(applog.ComponentSheets).
			WithOperation(applog.OpResync).
			WithCount(len(items)).
			ToSlice()...)
	return nil
}

func toValues(t core.Transaction) []any {
	return toAny(ports.Row(t))
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
