package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fedinairn08/bank-rest/internal/apperr"
	"github.com/fedinairn08/bank-rest/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new regular user with a hashed password
func (s *Service) Register(username, password, email string) (*models.User, error) {
	return s.createUser(username, password, email, models.RoleUser)
}

// CreateUser creates a user with the given role. Admin only.
func (s *Service) CreateUser(username, password, email, role string, actorID int64) (*models.User, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("unknown role: %s", role)
	}
	return s.createUser(username, password, email, role)
}

func (s *Service) createUser(username, password, email, role string) (*models.User, error) {
	if len(username) < 3 || len(username) > 50 {
		return nil, apperr.Validation("username must be between 3 and 50 characters")
	}
	if len(password) < 6 || len(password) > 100 {
		return nil, apperr.Validation("password must be between 6 and 100 characters")
	}

	exists, err := s.repo.ExistsUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Validation("username already exists: %s", username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Roles:        []string{role},
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Username)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(username, password string) (string, *models.User, error) {
	user, err := s.repo.FindUserByUsername(username)
	if err != nil {
		// Only an unknown username becomes a credential refusal; storage
		// failures propagate as-is.
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, apperr.AccessDenied("invalid username or password")
		}
		return "", nil, err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.AccessDenied("invalid username or password")
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Username)
	return tokenString, user, nil
}

// GetUserByID returns a user visible to its owner or an admin
func (s *Service) GetUserByID(userID, actorID int64) (*models.User, error) {
	ok, err := s.canAccess(actorID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.AccessDenied("access denied")
	}
	return s.repo.FindUserByID(userID)
}

// UpdateUser applies a partial update to a user. Admin only.
// Only non-nil request fields overwrite existing values.
func (s *Service) UpdateUser(userID int64, req models.UpdateUserRequest, actorID int64) (*models.User, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if len(*req.Username) < 3 || len(*req.Username) > 50 {
			return nil, apperr.Validation("username must be between 3 and 50 characters")
		}
		exists, err := s.repo.ExistsUserByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.Validation("username already exists: %s", *req.Username)
		}
		user.Username = *req.Username
	}

	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 6 || len(*req.Password) > 100 {
			return nil, apperr.Validation("password must be between 6 and 100 characters")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.repo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user. Admin only; refused while any of the user's
// cards still holds a balance.
func (s *Service) DeleteUser(userID, actorID int64) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}

	if _, err := s.repo.FindUserByID(userID); err != nil {
		return err
	}

	hasBalance, err := s.repo.HasCardsWithBalance(userID)
	if err != nil {
		return err
	}
	if hasBalance {
		return apperr.BusinessRule("cannot delete user with cards having non-zero balance")
	}

	return s.repo.DeleteUser(userID)
}

// GetAllUsers returns a page of all users. Admin only.
func (s *Service) GetAllUsers(page models.PageRequest, actorID int64) (models.Page, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return models.Page{}, err
	}
	page = page.Normalize()
	users, total, err := s.repo.FindAllUsers(page)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(users, page, total), nil
}

// GetUsersByRole returns all users with the given role. Admin only.
func (s *Service) GetUsersByRole(role string, actorID int64) ([]*models.User, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("unknown role: %s", role)
	}
	return s.repo.FindUsersByRole(role)
}

func (s *Service) requireAdmin(actorID int64) error {
	isAdmin, err := s.IsAdmin(actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.AccessDenied("access denied. Admin role required")
	}
	return nil
}
