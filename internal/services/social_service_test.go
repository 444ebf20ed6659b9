package services

import (
	"context"
	"regexp"
	"testing"

	contextutils "auscultify/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectParty = "SELECT idUsuario, esPublico FROM Usuarios WHERE correoElectronico"

func newTestSocialService(t *testing.T) (*SocialService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, cleanup := newTestDB(t)
	return NewSocialServiceWithLogger(db, testLogger()), mock, cleanup
}

func partyRows(id int, public bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"idUsuario", "esPublico"}).AddRow(id, public)
}

func TestSocialService_Follow(t *testing.T) {
	service, mock, cleanup := newTestSocialService(t)
	defer cleanup()

	mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
	mock.ExpectQuery(selectParty).WithArgs("luis@example.com").WillReturnRows(partyRows(2, true))
	mock.ExpectExec("INSERT INTO Usuarios_Seguidores").WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, service.Follow(context.Background(), "ana@example.com", "luis@example.com"))
}

func TestSocialService_FollowErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(mock sqlmock.Sqlmock)
		target string
		code   contextutils.ErrorCode
		msg    string
	}{
		{
			name:   "missing emails",
			setup:  func(sqlmock.Sqlmock) {},
			target: "",
			code:   contextutils.ErrorCodeMissingRequired,
			msg:    msgFollowEmailsRequired,
		},
		{
			name: "unknown follower",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").
					WillReturnRows(sqlmock.NewRows([]string{"idUsuario", "esPublico"}))
			},
			target: "luis@example.com",
			code:   contextutils.ErrorCodeRecordNotFound,
			msg:    msgFollowerNotFound,
		},
		{
			name: "unknown target",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
				mock.ExpectQuery(selectParty).WithArgs("luis@example.com").
					WillReturnRows(sqlmock.NewRows([]string{"idUsuario", "esPublico"}))
			},
			target: "luis@example.com",
			code:   contextutils.ErrorCodeRecordNotFound,
			msg:    msgFollowedNotFound,
		},
		{
			name: "private target",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
				mock.ExpectQuery(selectParty).WithArgs("luis@example.com").WillReturnRows(partyRows(2, false))
			},
			target: "luis@example.com",
			code:   contextutils.ErrorCodeForbidden,
			msg:    msgFollowPrivate,
		},
		{
			name: "self",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
			},
			target: "ana@example.com",
			code:   contextutils.ErrorCodeInvalidInput,
			msg:    msgFollowSelf,
		},
		{
			name: "already following",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
				mock.ExpectQuery(selectParty).WithArgs("luis@example.com").WillReturnRows(partyRows(2, true))
				mock.ExpectExec("INSERT INTO Usuarios_Seguidores").
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
			target: "luis@example.com",
			code:   contextutils.ErrorCodeInvalidInput,
			msg:    msgAlreadyFollowing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mock, cleanup := newTestSocialService(t)
			defer cleanup()
			tt.setup(mock)

			err := service.Follow(context.Background(), "ana@example.com", tt.target)
			require.Error(t, err)
			assert.Equal(t, tt.code, contextutils.GetErrorCode(err))
			assert.Equal(t, tt.msg, contextutils.ClientMessage(err, contextutils.LocaleSpanish))
		})
	}
}

func TestSocialService_Unfollow(t *testing.T) {
	t.Run("removes edge", func(t *testing.T) {
		service, mock, cleanup := newTestSocialService(t)
		defer cleanup()

		mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
		mock.ExpectQuery(selectParty).WithArgs("luis@example.com").WillReturnRows(partyRows(2, false))
		mock.ExpectExec("DELETE FROM Usuarios_Seguidores").WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, service.Unfollow(context.Background(), "ana@example.com", "luis@example.com"))
	})

	t.Run("no edge", func(t *testing.T) {
		service, mock, cleanup := newTestSocialService(t)
		defer cleanup()

		mock.ExpectQuery(selectParty).WithArgs("ana@example.com").WillReturnRows(partyRows(1, true))
		mock.ExpectQuery(selectParty).WithArgs("luis@example.com").WillReturnRows(partyRows(2, true))
		mock.ExpectExec("DELETE FROM Usuarios_Seguidores").WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.Unfollow(context.Background(), "ana@example.com", "luis@example.com")
		require.Error(t, err)
		assert.Equal(t, contextutils.ErrorCodeRecordNotFound, contextutils.GetErrorCode(err))
		assert.Equal(t, msgNotFollowing, contextutils.ClientMessage(err, contextutils.LocaleSpanish))
	})
}

func TestSocialService_ListFollowing(t *testing.T) {
	service, mock, cleanup := newTestSocialService(t)
	defer cleanup()

	mock.ExpectQuery("seguido.esPublico = 1").WithArgs("ana@example.com").WillReturnRows(
		sqlmock.NewRows([]string{"correoElectronico"}).AddRow("bea@example.com").AddRow("luis@example.com"))

	following, err := service.ListFollowing(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.Len(t, following, 2)
	assert.Equal(t, "bea@example.com", following[0].Email)
}

func TestSocialService_ListPublicUsers(t *testing.T) {
	t.Run("anonymous without search", func(t *testing.T) {
		service, mock, cleanup := newTestSocialService(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT u.correoElectronico FROM Usuarios u WHERE u.esPublico = 1 ORDER BY u.correoElectronico")).
			WillReturnRows(sqlmock.NewRows([]string{"correoElectronico"}).AddRow("ana@example.com"))

		users, err := service.ListPublicUsers(context.Background(), "", "")
		require.NoError(t, err)
		require.Len(t, users, 1)
	})

	t.Run("excluding viewer and escaped search", func(t *testing.T) {
		service, mock, cleanup := newTestSocialService(t)
		defer cleanup()

		mock.ExpectQuery("NOT IN").
			WithArgs("ana@example.com", "ana@example.com", `%lu\_is\%%`).
			WillReturnRows(sqlmock.NewRows([]string{"correoElectronico"}))

		users, err := service.ListPublicUsers(context.Background(), "lu_is%", "ana@example.com")
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.NotNil(t, users)
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
