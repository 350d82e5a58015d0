package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// Compile-time check
var _ RegistrationRepository = (*pgRegistrationRepository)(nil)

type pgRegistrationRepository struct {
	logger *zap.Logger
}

// NewPgRegistrationRepository создает репозиторий записей регистрации опций.
func NewPgRegistrationRepository(logger *zap.Logger) RegistrationRepository {
	return &pgRegistrationRepository{logger: logger.Named("PgRegistrationRepo")}
}

// Create — единственная атомарная запись регистрации. Обе опции лежат
// в одной строке, поэтому частичная регистрация невозможна на уровне схемы.
func (r *pgRegistrationRepository) Create(ctx context.Context, querier DBTX, reg *models.OptionRegistration) error {
	query := `
        INSERT INTO option_registrations
            (chapter_id,
             option0_name, option0_symbol, option0_metadata_uri, option0_token_address,
             option1_name, option1_symbol, option1_metadata_uri, option1_token_address,
             token_created_at, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	logFields := []zap.Field{zap.String("chapterID", reg.ChapterID.String())}
	r.logger.Debug("Creating option registration", logFields...)

	_, err := querier.Exec(ctx, query,
		reg.ChapterID,
		reg.Options[0].Name, reg.Options[0].Symbol, reg.Options[0].MetadataURI, reg.Options[0].TokenAddress,
		reg.Options[1].Name, reg.Options[1].Symbol, reg.Options[1].MetadataURI, reg.Options[1].TokenAddress,
		reg.TokenCreatedAt, reg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			r.logger.Warn("Option registration conflict: chapter already registered", logFields...)
			return models.ErrAlreadyRegistered
		}
		r.logger.Error("Failed to create option registration", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения регистрации опций: %w", err)
	}
	r.logger.Info("Option registration created", logFields...)
	return nil
}

func (r *pgRegistrationRepository) GetByChapterID(ctx context.Context, querier DBTX, chapterID uuid.UUID) (*models.OptionRegistration, error) {
	query := `
        SELECT chapter_id,
               option0_name, option0_symbol, option0_metadata_uri, option0_token_address,
               option1_name, option1_symbol, option1_metadata_uri, option1_token_address,
               token_created_at, created_at
        FROM option_registrations
        WHERE chapter_id = $1
    `
	reg, err := scanRegistration(querier.QueryRow(ctx, query, chapterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get option registration", zap.String("chapterID", chapterID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения регистрации опций %s: %w", chapterID, err)
	}
	return reg, nil
}

func (r *pgRegistrationRepository) ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) (map[uuid.UUID]*models.OptionRegistration, error) {
	query := `
        SELECT reg.chapter_id,
               reg.option0_name, reg.option0_symbol, reg.option0_metadata_uri, reg.option0_token_address,
               reg.option1_name, reg.option1_symbol, reg.option1_metadata_uri, reg.option1_token_address,
               reg.token_created_at, reg.created_at
        FROM option_registrations reg
        JOIN chapters ch ON ch.id = reg.chapter_id
        WHERE ch.story_id = $1
    `
	rows, err := querier.Query(ctx, query, storyID)
	if err != nil {
		r.logger.Error("Failed to list registrations by story", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения регистраций истории %s: %w", storyID, err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*models.OptionRegistration)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования регистрации: %w", err)
		}
		result[reg.ChapterID] = reg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода регистраций истории %s: %w", storyID, err)
	}
	return result, nil
}

func scanRegistration(row pgx.Row) (*models.OptionRegistration, error) {
	reg := &models.OptionRegistration{}
	err := row.Scan(
		&reg.ChapterID,
		&reg.Options[0].Name, &reg.Options[0].Symbol, &reg.Options[0].MetadataURI, &reg.Options[0].TokenAddress,
		&reg.Options[1].Name, &reg.Options[1].Symbol, &reg.Options[1].MetadataURI, &reg.Options[1].TokenAddress,
		&reg.TokenCreatedAt, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Options[0].OptionIndex = 0
	reg.Options[1].OptionIndex = 1
	return reg, nil
}
