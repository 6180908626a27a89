// internal/services/user_service.go
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

type UserService struct {
	store              repository.Store
	searchHistoryLimit int
}

func NewUserService(store repository.Store, searchHistoryLimit int) *UserService {
	return &UserService{
		store:              store,
		searchHistoryLimit: searchHistoryLimit,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return user, nil
}

// UpdateProfile edits name, addresses, weights and price tolerance. Callers
// may edit only their own profile unless they are admins.
func (s *UserService) UpdateProfile(ctx context.Context, id, callerID uuid.UUID, admin bool, fields models.UserFields) (*models.User, error) {
	if !admin && id != callerID {
		return nil, ErrForbidden
	}

	var user *models.User
	err := s.store.WithTransaction(ctx, func(tx repository.Tx) error {
		current, err := tx.Users().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := current.ApplyProfile(fields); err != nil {
			return err
		}
		if err := tx.Users().UpdateProfile(ctx, current); err != nil {
			return err
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, storeErr("update user", err)
	}

	logrus.WithField("user_id", id.String()).Info("User profile updated")
	return user, nil
}

// RecordSearch appends the trimmed query to the user's bounded search
// history. Blank queries are not recorded.
func (s *UserService) RecordSearch(ctx context.Context, userID uuid.UUID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if err := s.store.Users().AppendSearchHistory(ctx, userID, query, s.searchHistoryLimit); err != nil {
		return storeErr("record search", err)
	}
	return nil
}
