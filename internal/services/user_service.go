package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	CreateUserWithPassword(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userID int) error
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

const userSelectFields = `id, username, password_hash, created_at, updated_at`

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, logger *observability.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

// getUserByQuery returns nil, nil when no user matches
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to load user")
	}
	return user, nil
}

// CreateUserWithPassword creates an account with a bcrypt hashed password
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user_with_password", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "username cannot be empty")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	now := nowUTC()
	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `INSERT INTO users (username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err = s.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, now, now).Scan(&user.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "username %q is already taken", username)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	s.logger.Info(ctx, "Created user", map[string]interface{}{"user_id": user.ID, "username": username})
	return user, nil
}

// AuthenticateUser verifies user credentials and returns the user if valid
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	// Unknown users and wrong passwords are indistinguishable to the caller
	if user == nil || user.PasswordHash == "" {
		return nil, contextutils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID; nil when absent
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", attribute.Int("user.id", id))
	defer observability.FinishSpan(span, &err)

	return s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username; nil when absent
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	return s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE username = $1`, username)
}

// UpdateUserPassword replaces the password hash of a user
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		string(hashedPassword), nowUTC(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	return requireAffected(result, "user", userID)
}

// GetAllUsers lists every account ordered by username
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_all_users")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+userSelectFields+` FROM users ORDER BY username`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.WrapError(closeErr, "failed to close rows")
		}
	}()

	users := []models.User{}
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate users")
	}
	return users, nil
}

// DeleteUser removes an account; its surveys are removed by ON DELETE CASCADE
func (s *UserService) DeleteUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	return requireAffected(result, "user", userID)
}
