package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/closeio/authalligator/internal/domain/linkedaccount"
	"github.com/closeio/authalligator/internal/infrastructure/persistence/models"
	apperrors "github.com/closeio/authalligator/internal/shared/errors"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
)

type LinkedAccountRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewLinkedAccountRepository(db *gorm.DB, log logger.Interface) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db, logger: log}
}

// AutoMigrate creates or updates the account_keys table.
func (r *LinkedAccountRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&models.LinkedAccountModel{}); err != nil {
		return fmt.Errorf("failed to migrate linked accounts: %w", err)
	}
	return nil
}

func (r *LinkedAccountRepository) Save(ctx context.Context, account *linkedaccount.LinkedAccount) error {
	model := toLinkedAccountModel(account)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_key", "number_of_account_keys", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save linked account: %w", err)
	}

	// re-read so ID and CreatedAt reflect the stored row after an upsert
	stored, err := r.Get(ctx, account.Provider, account.Username)
	if err != nil {
		return err
	}
	*account = *stored

	r.logger.Debugw("linked account saved", "provider", account.Provider, "username", account.Username)
	return nil
}

func (r *LinkedAccountRepository) Get(ctx context.Context, provider authalligator.ProviderType, username string) (*linkedaccount.LinkedAccount, error) {
	var model models.LinkedAccountModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND username = ?", string(provider), username).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("linked account not found", fmt.Sprintf("%s/%s", provider, username))
		}
		return nil, fmt.Errorf("failed to get linked account: %w", err)
	}
	return toLinkedAccount(&model), nil
}

func (r *LinkedAccountRepository) Delete(ctx context.Context, provider authalligator.ProviderType, username string) error {
	result := r.db.WithContext(ctx).
		Where("provider = ? AND username = ?", string(provider), username).
		Delete(&models.LinkedAccountModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete linked account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("linked account not found", fmt.Sprintf("%s/%s", provider, username))
	}
	return nil
}

func (r *LinkedAccountRepository) List(ctx context.Context) ([]*linkedaccount.LinkedAccount, error) {
	var rows []models.LinkedAccountModel
	if err := r.db.WithContext(ctx).Order("provider, username").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}

	accounts := make([]*linkedaccount.LinkedAccount, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, toLinkedAccount(&rows[i]))
	}
	return accounts, nil
}

func toLinkedAccountModel(a *linkedaccount.LinkedAccount) *models.LinkedAccountModel {
	return &models.LinkedAccountModel{
		ID:                  a.ID,
		Provider:            string(a.Provider),
		Username:            a.Username,
		AccountKey:          a.AccountKey,
		NumberOfAccountKeys: a.NumberOfAccountKeys,
	}
}

func toLinkedAccount(m *models.LinkedAccountModel) *linkedaccount.LinkedAccount {
	return &linkedaccount.LinkedAccount{
		ID:                  m.ID,
		Provider:            authalligator.ProviderType(m.Provider),
		Username:            m.Username,
		AccountKey:          m.AccountKey,
		NumberOfAccountKeys: m.NumberOfAccountKeys,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

var _ linkedaccount.Repository = (*LinkedAccountRepository)(nil)
