package gsheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client клиент Google Drive и Google Sheets
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClient создаёт клиент по JSON сервисного аккаунта
func NewClient(ctx context.Context, credentials []byte) (*Client, error) {
	config, err := google.JWTConfigFromJSON(credentials,
		sheets.SpreadsheetsScope,
		drive.DriveScope,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}

	return NewClientWithOptions(ctx, option.WithHTTPClient(config.Client(ctx)))
}

// NewClientWithOptions создаёт клиент с произвольными опциями (тесты, прокси)
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	sheetsSrv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Sheets сервиса: %w", err)
	}

	driveSrv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Drive сервиса: %w", err)
	}

	return &Client{
		sheets: sheetsSrv,
		drive:  driveSrv,
	}, nil
}

// FolderURL возвращает публичную ссылку на папку
func FolderURL(folderID string) string {
	return fmt.Sprintf("https://drive.google.com/drive/folders/%s?usp=sharing", folderID)
}

// GetSpreadsheetURL возвращает URL таблицы
func GetSpreadsheetURL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", spreadsheetID)
}
