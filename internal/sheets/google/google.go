package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"agrotrack/internal/core"
	ports "agrotrack/internal/sheets"
)

const (
	defaultLedgerSheet  = "Ledger"
	defaultReportsSheet = "Reports"
	valueInputOption    = "USER_ENTERED"
)

// LedgerHeader is the first row of the ledger sheet.
var LedgerHeader = []any{"Date", "Kind", "Category", "Description", "Amount", "Transaction ID", "Recorded At"}

// ReportHeader is the first row of the reports sheet.
var ReportHeader = []any{"Generated At", "Report", "From", "To", "Income", "Expenses", "Net Profit", "Transactions", "Expense Breakdown"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	reportsSheet  string
}

// Ensure interface conformance
var (
	_ ports.LedgerExporter = (*Client)(nil)
	_ ports.ReportExporter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: a service account (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS), otherwise an OAuth client plus token
// (GOOGLE_OAUTH_CLIENT_JSON/FILE and GOOGLE_OAUTH_TOKEN_JSON/FILE, see cmd/oauth-init).
// Optional sheet names: GOOGLE_SHEET_NAME (default "Ledger"),
// GOOGLE_REPORTS_SHEET_NAME (default "Reports").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return NewWithService(svc, spreadsheetID,
		os.Getenv("GOOGLE_SHEET_NAME"),
		os.Getenv("GOOGLE_REPORTS_SHEET_NAME")), nil
}

// NewWithService wraps an already configured Sheets service. Empty sheet
// names fall back to the defaults.
func NewWithService(svc *gsheet.Service, spreadsheetID, ledgerSheet, reportsSheet string) *Client {
	ledgerSheet = strings.TrimSpace(ledgerSheet)
	if ledgerSheet == "" {
		ledgerSheet = defaultLedgerSheet
	}
	reportsSheet = strings.TrimSpace(reportsSheet)
	if reportsSheet == "" {
		reportsSheet = defaultReportsSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerSheet:   ledgerSheet,
		reportsSheet:  reportsSheet,
	}
}

// newSheetsService prefers service account credentials and falls back to an
// OAuth client with a stored token.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	if credentialsJSON != nil {
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)
		service, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	ts, err := oauthTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// serviceAccountCredentials returns nil, nil when no service account is configured.
func serviceAccountCredentials() ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func readJSONSetting(inlineKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(inlineKey)); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv(fileKey)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileKey, err)
		}
		return b, nil
	}
	return nil, nil
}

func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	clientJSON, err := readJSONSetting("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	tokenJSON, err := readJSONSetting("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// TransactionRow renders tx as one ledger sheet row.
func TransactionRow(tx core.Transaction) []any {
	kind := "Income"
	if tx.Kind == core.Expense {
		kind = "Expense"
	}
	return []any{
		tx.Date.String(),
		kind,
		tx.Category.Label(),
		tx.Description,
		tx.Amount.String(),
		tx.ID,
		tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ReportRow renders r as one reports sheet row.
func ReportRow(r core.LedgerReport) []any {
	parts := make([]string, 0, len(r.Breakdown))
	for _, c := range r.Breakdown {
		parts = append(parts, fmt.Sprintf("%s %s (%d%%)", c.Category.Label(), c.Amount.String(), c.Percentage))
	}
	return []any{
		r.GeneratedAt.UTC().Format(time.RFC3339),
		r.Name,
		r.Period.Start.String(),
		r.Period.End.String(),
		r.Summary.TotalIncome.String(),
		r.Summary.TotalExpenses.String(),
		r.Summary.NetProfit.String(),
		r.TransactionCount,
		strings.Join(parts, "; "),
	}
}

// AppendTransaction implements ports.LedgerExporter
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	return c.appendRow(ctx, c.ledgerSheet, "A:G", TransactionRow(tx))
}

// WriteReport implements ports.ReportExporter
func (c *Client) WriteReport(ctx context.Context, r core.LedgerReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	return c.appendRow(ctx, c.reportsSheet, "A:I", ReportRow(r))
}

func (c *Client) appendRow(ctx context.Context, sheet, cols string, row []any) (string, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// EnsureHeaders writes the header rows when the sheets are still empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	for _, h := range []struct {
		sheet, rng string
		header     []any
	}{
		{c.ledgerSheet, "A1:G1", LedgerHeader},
		{c.reportsSheet, "A1:I1", ReportHeader},
	} {
		full := fmt.Sprintf("%s!%s", h.sheet, h.rng)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, full).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", full, err)
		}
		if len(resp.Values) > 0 {
			continue
		}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, full, &gsheet.ValueRange{Values: [][]any{h.header}}).
			ValueInputOption(valueInputOption).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header %s: %w", full, err)
		}
		slog.InfoContext(ctx, "Wrote sheet header", "range", full)
	}
	return nil
}
