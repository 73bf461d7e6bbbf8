package repository

import (
	"context"
	"database/sql"

	"friday/models"
)

const settingsID = 1

type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// LLMModel returns the configured model, seeding the singleton row with
// defaultModel the first time.
func (r *PostgresSettingsRepository) LLMModel(ctx context.Context, defaultModel string) (string, error) {
	var model string
	err := r.db.QueryRowContext(ctx, `INSERT INTO general_settings (id, llm_model) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING llm_model`, settingsID, defaultModel).Scan(&model)
	return model, err
}

func (r *PostgresSettingsRepository) SetLLMModel(ctx context.Context, model string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO general_settings (id, llm_model) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET llm_model = EXCLUDED.llm_model`, settingsID, model)
	return err
}

type PostgresOperatorRepository struct {
	db *sql.DB
}

func NewOperatorRepository(db *sql.DB) *PostgresOperatorRepository {
	return &PostgresOperatorRepository{db: db}
}

func (r *PostgresOperatorRepository) Create(ctx context.Context, username, passwordHash string) (*models.Operator, error) {
	op := &models.Operator{Username: username, PasswordHash: passwordHash}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO operators (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		username, passwordHash).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return op, nil
}

func (r *PostgresOperatorRepository) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM operators WHERE username = $1`, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &op, nil
}
