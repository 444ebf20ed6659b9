package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SocialServiceInterface defines the follow graph operations
type SocialServiceInterface interface {
	Follow(ctx context.Context, followerEmail, followedEmail string) error
	Unfollow(ctx context.Context, followerEmail, followedEmail string) error
	ListFollowing(ctx context.Context, email string) ([]models.FollowedUser, error)
	ListPublicUsers(ctx context.Context, search, excluding string) ([]models.PublicUser, error)
}

// SocialService manages Usuarios_Seguidores
type SocialService struct {
	db     *sql.DB
	logger *observability.Logger
}

const (
	msgFollowEmailsRequired = "Email del seguidor y seguido son requeridos"
	msgFollowerNotFound     = "Usuario seguidor no encontrado"
	msgFollowedNotFound     = "Usuario a seguir no encontrado"
	msgFollowPrivate        = "No puedes seguir a un usuario privado"
	msgFollowSelf           = "No puedes seguirte a ti mismo"
	msgAlreadyFollowing     = "Ya estás siguiendo a este usuario"
	msgNotFollowing         = "No estás siguiendo a este usuario"
)

// NewSocialServiceWithLogger creates a new SocialService
func NewSocialServiceWithLogger(db *sql.DB, logger *observability.Logger) *SocialService {
	return &SocialService{db: db, logger: logger}
}

type followParty struct {
	id       int
	isPublic bool
}

// resolvePair looks up both ends of a follow edge
func (s *SocialService) resolvePair(ctx context.Context, followerEmail, followedEmail string) (*followParty, *followParty, error) {
	lookup := func(email, missing string) (*followParty, error) {
		p := &followParty{}
		err := s.db.QueryRowContext(ctx, `SELECT idUsuario, esPublico FROM Usuarios WHERE correoElectronico = ?`, email).
			Scan(&p.id, &p.isPublic)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, missing, "")
		}
		if err != nil {
			return nil, database.ClassifyError(err, "failed to load user")
		}
		return p, nil
	}

	follower, err := lookup(followerEmail, msgFollowerNotFound)
	if err != nil {
		return nil, nil, err
	}
	followed, err := lookup(followedEmail, msgFollowedNotFound)
	if err != nil {
		return nil, nil, err
	}
	return follower, followed, nil
}

func followAttributes(followerEmail, followedEmail string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("social.follower", contextutils.MaskEmail(followerEmail)),
		attribute.String("social.followed", contextutils.MaskEmail(followedEmail)),
	}
}

// Follow creates an edge. The target must be public at this moment.
func (s *SocialService) Follow(ctx context.Context, followerEmail, followedEmail string) (err error) {
	followerEmail, followedEmail = strings.TrimSpace(followerEmail), strings.TrimSpace(followedEmail)
	ctx, span := observability.TraceSocialFunction(ctx, "follow", followAttributes(followerEmail, followedEmail)...)
	defer observability.FinishSpan(span, &err)

	if followerEmail == "" || followedEmail == "" {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgFollowEmailsRequired, "")
	}

	follower, followed, err := s.resolvePair(ctx, followerEmail, followedEmail)
	if err != nil {
		return err
	}
	if !followed.isPublic {
		return contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityInfo, msgFollowPrivate, "")
	}
	if follower.id == followed.id {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgFollowSelf, "")
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO Usuarios_Seguidores (idSeguidor, idSeguido) VALUES (?, ?)`, follower.id, followed.id)
	if err != nil {
		if database.IsDuplicate(err) {
			return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgAlreadyFollowing, "")
		}
		return database.ClassifyError(err, "failed to create follow edge")
	}

	s.logger.Debug(ctx, "Follow edge created", map[string]interface{}{"follower_id": follower.id, "followed_id": followed.id})
	return nil
}

// Unfollow removes an edge; a missing edge is reported as not found
func (s *SocialService) Unfollow(ctx context.Context, followerEmail, followedEmail string) (err error) {
	followerEmail, followedEmail = strings.TrimSpace(followerEmail), strings.TrimSpace(followedEmail)
	ctx, span := observability.TraceSocialFunction(ctx, "unfollow", followAttributes(followerEmail, followedEmail)...)
	defer observability.FinishSpan(span, &err)

	if followerEmail == "" || followedEmail == "" {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgFollowEmailsRequired, "")
	}

	follower, followed, err := s.resolvePair(ctx, followerEmail, followedEmail)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM Usuarios_Seguidores WHERE idSeguidor = ? AND idSeguido = ?`, follower.id, followed.id)
	if err != nil {
		return database.ClassifyError(err, "failed to delete follow edge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read delete result")
	}
	if n == 0 {
		return contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgNotFollowing, "")
	}
	return nil
}

// ListFollowing returns the public users followed by email, ordered by address
func (s *SocialService) ListFollowing(ctx context.Context, email string) (result0 []models.FollowedUser, err error) {
	email = strings.TrimSpace(email)
	ctx, span := observability.TraceSocialFunction(ctx, "list_following", attribute.String("social.follower", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	if email == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgEmailRequired, "")
	}

	emails, err := queryStrings(ctx, s.db, `
		SELECT seguido.correoElectronico
		FROM Usuarios_Seguidores us
		JOIN Usuarios seguidor ON us.idSeguidor = seguidor.idUsuario
		JOIN Usuarios seguido ON us.idSeguido = seguido.idUsuario
		WHERE seguidor.correoElectronico = ? AND seguido.esPublico = 1
		ORDER BY seguido.correoElectronico`, email)
	if err != nil {
		return nil, err
	}

	out := make([]models.FollowedUser, 0, len(emails))
	for _, e := range emails {
		out = append(out, models.FollowedUser{Email: e})
	}
	return out, nil
}

// ListPublicUsers returns public users whose address contains search (case-sensitive).
// When excluding is set, that user and everyone they follow are left out.
func (s *SocialService) ListPublicUsers(ctx context.Context, search, excluding string) (result0 []models.PublicUser, err error) {
	excluding = strings.TrimSpace(excluding)
	ctx, span := observability.TraceSocialFunction(ctx, "list_public_users", observability.AttributeSearch(search))
	defer observability.FinishSpan(span, &err)

	query := `SELECT u.correoElectronico FROM Usuarios u WHERE u.esPublico = 1`
	var args []interface{}
	if excluding != "" {
		query += ` AND u.correoElectronico <> ?
			AND u.idUsuario NOT IN (
				SELECT us.idSeguido FROM Usuarios_Seguidores us
				JOIN Usuarios seguidor ON us.idSeguidor = seguidor.idUsuario
				WHERE seguidor.correoElectronico = ?
			)`
		args = append(args, excluding, excluding)
	}
	if strings.TrimSpace(search) != "" {
		query += ` AND u.correoElectronico COLLATE utf8mb4_bin LIKE ?`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY u.correoElectronico`

	emails, err := queryStrings(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]models.PublicUser, 0, len(emails))
	for _, e := range emails {
		out = append(out, models.PublicUser{Email: e})
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
