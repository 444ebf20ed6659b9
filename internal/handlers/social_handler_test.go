package handlers

import (
	"net/http"
	"testing"

	"auscultify/internal/models"
	contextutils "auscultify/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSocialHandler_Follow(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("Follow", mock.Anything, "ana@example.com", "luis@example.com").Return(nil)

	w := doRequest(router, http.MethodPost, "/seguir", `{"emailSeguidor":"ana@example.com","emailSeguido":"luis@example.com"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"mensaje":"Usuario seguido correctamente"}`, w.Body.String())
	svc.assertExpectations(t)
}

func TestSocialHandler_Follow_PrivateProfile(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("Follow", mock.Anything, "ana@example.com", "eva@example.com").
		Return(contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityInfo, "No puedes seguir a un usuario con perfil privado", ""))

	w := doRequest(router, http.MethodPost, "/seguir", `{"emailSeguidor":"ana@example.com","emailSeguido":"eva@example.com"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "No puedes seguir a un usuario con perfil privado", body["mensaje"])
	assert.Equal(t, false, body["retryable"])
}

func TestSocialHandler_Follow_SchemaRejectsNumbers(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))

	w := doRequest(router, http.MethodPost, "/seguir", `{"emailSeguidor":1,"emailSeguido":2}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.social.AssertNotCalled(t, "Follow", mock.Anything, mock.Anything, mock.Anything)
}

func TestSocialHandler_Unfollow(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("Unfollow", mock.Anything, "ana@example.com", "luis@example.com").Return(nil)

	w := doRequest(router, http.MethodDelete, "/eliminar-siguiendo", `{"emailSeguidor":"ana@example.com","emailSeguido":"luis@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Has dejado de seguir al usuario exitosamente", decodeBody(t, w)["mensaje"])
	svc.assertExpectations(t)
}

func TestSocialHandler_Unfollow_NotFollowing(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("Unfollow", mock.Anything, "ana@example.com", "luis@example.com").
		Return(contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, "No sigues a este usuario", ""))

	w := doRequest(router, http.MethodDelete, "/eliminar-siguiendo", `{"emailSeguidor":"ana@example.com","emailSeguido":"luis@example.com"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSocialHandler_ListFollowing(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("ListFollowing", mock.Anything, "ana@example.com").
		Return([]models.FollowedUser{{Email: "luis@example.com"}}, nil)

	w := doRequest(router, http.MethodGet, "/obtener-siguiendo?email=ana@example.com", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"siguiendo":[{"email":"luis@example.com"}],"total":1}`, w.Body.String())
	svc.assertExpectations(t)
}

func TestSocialHandler_ListPublicUsers(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.social.On("ListPublicUsers", mock.Anything, "lu", "ana@example.com").
		Return([]models.PublicUser{{Email: "luis@example.com"}, {Email: "lucia@example.com"}}, nil)

	w := doRequest(router, http.MethodGet, "/obtener-usuarios-publicos?busqueda=lu&usuarioActual=ana@example.com", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["total"])
	svc.assertExpectations(t)
}
