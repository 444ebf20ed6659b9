package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"auscultify/internal/config"
	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the account and profile operations
type UserServiceInterface interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, req models.ProfileUpdateRequest) (*models.User, error)
	DeleteAccount(ctx context.Context, email, password string) error
	EnsureAdmin(ctx context.Context) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

const userSelectFields = `idUsuario, correoElectronico, contrasena, totalPreguntasAcertadas, totalPreguntasFalladas,
	totalPreguntasContestadas, racha, ultimoDiaPregunta, esPublico, idCriterioMasUsado`

// Client-facing messages
const (
	msgInvalidEmail     = "Dirección de correo electrónico no válida"
	msgPasswordMismatch = "Las contraseñas no coinciden"
	msgPasswordRequired = "La contraseña es obligatoria"
	msgUserExists       = "El usuario ya existe"
	msgUserNotFound     = "Usuario no encontrado"
	msgWrongPassword    = "Contraseña incorrecta"
	msgEmailInUse       = "El correo electrónico ya está en uso"
	msgNothingToUpdate  = "No hay campos para actualizar"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.TotalCorrect, &user.TotalFailed,
		&user.TotalAnswered, &user.Streak, &user.LastAnswerDate, &user.IsPublic, &user.FavoriteCriterionID,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// getUserByQuery returns nil without error when no row matches
func getUserByQuery(ctx context.Context, q database.Querier, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.ClassifyError(err, "failed to load user")
	}
	return user, nil
}

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *UserService) hashPassword(password string) (string, error) {
	cost := bcrypt.DefaultCost
	if s.cfg != nil && s.cfg.Auth.BcryptCost > 0 {
		cost = s.cfg.Auth.BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to hash password")
	}
	return string(hash), nil
}

// Register creates a public account with zeroed counters
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (result0 *models.User, err error) {
	email := strings.TrimSpace(req.Usuario)
	ctx, span := observability.TraceUserFunction(ctx, "register", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityInfo, msgInvalidEmail, "")
	}
	if req.Contrasena1 == "" || req.Contrasena2 == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgPasswordRequired, "")
	}
	if req.Contrasena1 != req.Contrasena2 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgPasswordMismatch, "")
	}

	existing, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE correoElectronico = ?`, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgUserExists, "")
	}

	hash, err := s.hashPassword(req.Contrasena1)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO Usuarios (correoElectronico, contrasena, totalPreguntasAcertadas, totalPreguntasFalladas,
			totalPreguntasContestadas, racha, esPublico, idCriterioMasUsado)
		VALUES (?, ?, 0, 0, 0, 0, 1, 1)`, email, hash)
	if err != nil {
		// two concurrent registrations with the same address
		if database.IsDuplicate(err) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgUserExists, "")
		}
		return nil, database.ClassifyError(err, "failed to insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read new user id")
	}

	s.logger.Info(ctx, "User registered", map[string]interface{}{"user_id": id, "email": contextutils.MaskEmail(email)})

	return &models.User{
		ID:                  int(id),
		Email:               email,
		PasswordHash:        hash,
		IsPublic:            true,
		FavoriteCriterionID: 1,
	}, nil
}

// Login checks the credentials and returns the account
func (s *UserService) Login(ctx context.Context, email, password string) (result0 *models.User, err error) {
	email = strings.TrimSpace(email)
	ctx, span := observability.TraceUserFunction(ctx, "login", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	return s.authenticate(ctx, email, password)
}

func (s *UserService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE correoElectronico = ?`, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidCredentials, contextutils.SeverityInfo, msgUserNotFound, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidCredentials, contextutils.SeverityInfo, msgWrongPassword, "")
	}
	return user, nil
}

// GetUserByID returns the user or a not-found error
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	user, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE idUsuario = ?`, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}
	return user, nil
}

// GetUserByEmail returns the user or a not-found error
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	user, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE correoElectronico = ?`, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}
	return user, nil
}

// UpdateProfile applies the provided fields in one UPDATE and returns the fresh row
func (s *UserService) UpdateProfile(ctx context.Context, req models.ProfileUpdateRequest) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_profile", observability.AttributeUserID(req.UserID))
	defer observability.FinishSpan(span, &err)

	if req.UserID <= 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, "El identificador de usuario es obligatorio", "")
	}

	var (
		sets []string
		args []interface{}
	)

	newEmail := ""
	if req.NuevoCorreo != nil {
		newEmail = strings.TrimSpace(*req.NuevoCorreo)
	}
	if newEmail != "" {
		if !contextutils.IsValidEmail(newEmail) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityInfo, msgInvalidEmail, "")
		}
		var otherID int
		err := s.db.QueryRowContext(ctx,
			`SELECT idUsuario FROM Usuarios WHERE correoElectronico = ? AND idUsuario != ?`, newEmail, req.UserID).Scan(&otherID)
		switch {
		case err == nil:
			return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgEmailInUse, "")
		case !errors.Is(err, sql.ErrNoRows):
			return nil, database.ClassifyError(err, "failed to check email uniqueness")
		}
	}

	if req.EsPublico != nil {
		sets = append(sets, "esPublico = ?")
		args = append(args, bool(*req.EsPublico))
	}
	if req.NuevaContrasena != nil && *req.NuevaContrasena != "" {
		hash, err := s.hashPassword(*req.NuevaContrasena)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "contrasena = ?")
		args = append(args, hash)
	}
	if newEmail != "" {
		sets = append(sets, "correoElectronico = ?")
		args = append(args, newEmail)
	}
	if len(sets) == 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgNothingToUpdate, "")
	}

	args = append(args, req.UserID)
	_, err = s.db.ExecContext(ctx, `UPDATE Usuarios SET `+strings.Join(sets, ", ")+` WHERE idUsuario = ?`, args...)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgEmailInUse, "")
		}
		return nil, database.ClassifyError(err, "failed to update profile")
	}

	// RowsAffected is also 0 for an update that changes nothing, so existence is decided by the read
	user, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE idUsuario = ?`, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}
	return user, nil
}

// DeleteAccount verifies the password and removes the user with its history and follow edges
func (s *UserService) DeleteAccount(ctx context.Context, email, password string) (err error) {
	email = strings.TrimSpace(email)
	ctx, span := observability.TraceUserFunction(ctx, "delete_account", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		statements := []string{
			`DELETE FROM Usuarios_has_Preguntas WHERE Usuarios_idUsuario = ?`,
			`DELETE FROM Usuarios_Seguidores WHERE idSeguidor = ?`,
			`DELETE FROM Usuarios_Seguidores WHERE idSeguido = ?`,
			`DELETE FROM Usuarios WHERE idUsuario = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, user.ID); err != nil {
				return database.ClassifyError(err, "failed to delete account")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Account deleted", map[string]interface{}{"user_id": user.ID})
	return nil
}

// EnsureAdmin creates the configured admin account when it does not exist yet.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context) (created bool, err error) {
	email, password := config.DefaultAdminEmail, config.DefaultAdminPassword
	if s.cfg != nil {
		email, password = s.cfg.Server.AdminEmail, s.cfg.Server.AdminPassword
	}
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	existing, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE correoElectronico = ?`, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.logger.Debug(ctx, "Admin user already exists", map[string]interface{}{"user_id": existing.ID})
		return false, nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO Usuarios (correoElectronico, contrasena, totalPreguntasAcertadas, totalPreguntasFalladas,
			totalPreguntasContestadas, racha, esPublico, idCriterioMasUsado)
		VALUES (?, ?, 0, 0, 0, 0, 0, 1)`, email, hash)
	if err != nil {
		if database.IsDuplicate(err) {
			return false, nil
		}
		return false, database.ClassifyError(err, "failed to create admin user")
	}

	s.logger.Info(ctx, "Admin user created", map[string]interface{}{"email": contextutils.MaskEmail(email)})
	return true, nil
}

// ListUsers returns every account ordered by id
func (s *UserService) ListUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "list_users")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+userSelectFields+` FROM Usuarios ORDER BY idUsuario`)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to list users")
	}
	defer func() { _ = rows.Close() }()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, database.ClassifyError(err, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to list users")
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

// ResetPassword replaces a user's password without checking the old one
func (s *UserService) ResetPassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "reset_password", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgPasswordRequired, "")
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE Usuarios SET contrasena = ? WHERE correoElectronico = ?`, hash, email)
	if err != nil {
		return database.ClassifyError(err, "failed to reset password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read update result")
	}
	if n == 0 {
		return contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}
	return nil
}
