package storage

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// ListCredentials returns every stored credential ordered by provider
func ListCredentials(ctx context.Context, db sqlscan.Querier) ([]Credential, error) {
	query := `SELECT provider, credential, updated_at FROM credentials ORDER BY provider`
	var creds []Credential
	if err := sqlscan.Select(ctx, db, &creds, query); err != nil {
		return nil, err
	}
	return creds, nil
}

// ReplaceCredentials makes the credentials table hold exactly creds
func ReplaceCredentials(ctx context.Context, db Execer, creds map[string]string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return err
	}

	now := time.Now()
	for provider, credential := range creds {
		query := `INSERT INTO credentials (provider, credential, updated_at) VALUES (?, ?, ?)`
		if _, err := db.ExecContext(ctx, query, provider, credential, now); err != nil {
			return err
		}
	}
	return nil
}

// ListSelectedModels returns every stored model choice ordered by provider
func ListSelectedModels(ctx context.Context, db sqlscan.Querier) ([]SelectedModel, error) {
	query := `SELECT provider, model, updated_at FROM selected_models ORDER BY provider`
	var models []SelectedModel
	if err := sqlscan.Select(ctx, db, &models, query); err != nil {
		return nil, err
	}
	return models, nil
}

// ReplaceSelectedModels makes the selected_models table hold exactly selected
func ReplaceSelectedModels(ctx context.Context, db Execer, selected map[string]string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM selected_models`); err != nil {
		return err
	}

	now := time.Now()
	for provider, model := range selected {
		query := `INSERT INTO selected_models (provider, model, updated_at) VALUES (?, ?, ?)`
		if _, err := db.ExecContext(ctx, query, provider, model, now); err != nil {
			return err
		}
	}
	return nil
}
