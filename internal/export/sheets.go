// Package export mirrors receipt events into an external Google Sheets
// ledger. Rows are append-only: every created/updated/deleted event adds
// a journal line, preserving history the volatile store cannot.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/msilvprog7/receipt/internal/events"
)

// Ledger appends receipt event rows to one sheet of one spreadsheet.
type Ledger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewLedgerFromEnv creates a Ledger from environment configuration.
// Required: EXPORT_SPREADSHEET_ID. Auth comes from either a user OAuth
// token minted by cmd/sheets-auth (GOOGLE_OAUTH_CLIENT_FILE +
// GOOGLE_OAUTH_TOKEN_FILE) or application default credentials.
func NewLedgerFromEnv(ctx context.Context) (*Ledger, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("EXPORT_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing EXPORT_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("EXPORT_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Receipts"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Ledger{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))

	if clientFile != "" && tokenFile != "" {
		clientJSON, err := os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		cfg, err := google.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse oauth client: %w", err)
		}
		tokenJSON, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth token file: %w", err)
		}
		var tok oauth2.Token
		if err := json.Unmarshal(tokenJSON, &tok); err != nil {
			return nil, fmt.Errorf("parse oauth token: %w", err)
		}
		return gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &tok)))
	}

	// Fall back to application default credentials.
	return gsheet.NewService(ctx)
}

// AppendEvent writes one journal row for the event and returns the row
// reference.
func (l *Ledger) AppendEvent(ctx context.Context, ev *events.ReceiptEvent) (string, error) {
	if l.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:H", l.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		ev.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		ev.Action,
		ev.OwnerID,
		ev.Receipt.ID,
		ev.Receipt.Transaction,
		ev.Receipt.Amount,
		ev.Receipt.Date.String(),
		ev.Receipt.Category,
	}}}

	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", l.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}
