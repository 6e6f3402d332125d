package sheetsclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jakechorley/daycare-scheduler/internal/config"
	"github.com/jakechorley/daycare-scheduler/pkg/utils"
)

// Client publishes rosters to Google Sheets
type Client struct {
	service *sheets.Service
	ctx     context.Context
}

// NewClient authorizes roster publishing for env, running the OAuth consent
// flow when no saved token can be reused
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, env string, logger *zap.Logger) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	tokens, err := utils.NewTokenStore()
	if err != nil {
		return nil, err
	}
	token, err := tokens.Authorize(ctx, oauthConfig, env, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	return NewClientWithOptions(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
}

// NewClientWithOptions builds a client from explicit API options, such as a
// custom endpoint and HTTP client
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{service: service, ctx: ctx}, nil
}

// tabExists reports whether the spreadsheet has a tab with the given title
func (c *Client) tabExists(spreadsheetID, title string) (bool, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(c.ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// readTab returns every value of a tab
func (c *Client) readTab(spreadsheetID, title string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, fmt.Sprintf("%s!A1:ZZ", title)).Context(c.ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}
	return resp.Values, nil
}

// addTab creates a tab and returns its sheet ID
func (c *Client) addTab(spreadsheetID, title string) (int64, error) {
	batch := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, batch).Context(c.ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("unexpected response from create sheet")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// writeTab overwrites a tab from A1
func (c *Client) writeTab(spreadsheetID, title string, values [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("%s!A1", title),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(c.ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write roster: %w", err)
	}
	return nil
}
