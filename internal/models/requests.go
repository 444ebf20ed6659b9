package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexBool accepts true/false as well as the 0/1 integers older clients send
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	n, err := strconv.ParseFloat(string(bytes.Trim(data, `"`)), 64)
	if err != nil {
		return fmt.Errorf("invalid boolean %s", data)
	}
	*b = n != 0
	return nil
}

// RegisterRequest is the body of POST /registrarse
type RegisterRequest struct {
	Usuario     string `json:"usuario"`
	Contrasena1 string `json:"contrasena1"`
	Contrasena2 string `json:"contrasena2"`
}

// CredentialsRequest is the body of login and account deletion
type CredentialsRequest struct {
	Usuario    string `json:"usuario"`
	Contrasena string `json:"contrasena"`
}

// ProfileUpdateRequest is the body of PUT /modificar-perfil. Nil fields are left unchanged.
type ProfileUpdateRequest struct {
	UserID          int       `json:"userId"`
	EsPublico       *FlexBool `json:"esPublico"`
	NuevaContrasena *string   `json:"nuevaContrasena"`
	NuevoCorreo     *string   `json:"nuevoCorreo"`
}

// SyncRequest is the body of POST /sincronizar-datos
type SyncRequest struct {
	Email string `json:"email"`
}

// SessionRequest is the body of POST /actualizar-datos-usuario
type SessionRequest struct {
	UsuarioID           *int           `json:"usuarioId"`
	PreguntasResultados []AnswerResult `json:"preguntasResultados"`
	FechaContestacion   *string        `json:"fechaContestacion"`
}

// FollowRequest is the body of follow and unfollow
type FollowRequest struct {
	EmailSeguidor string `json:"emailSeguidor"`
	EmailSeguido  string `json:"emailSeguido"`
}

// CreateCategoryRequest is the body of POST /crear-categoria
type CreateCategoryRequest struct {
	NombreCategoria string `json:"nombreCategoria"`
}

// DeleteCategoryRequest is the body of DELETE /eliminar-categoria
type DeleteCategoryRequest struct {
	IDCategoria     *int    `json:"idCategoria"`
	NombreCategoria *string `json:"nombreCategoria"`
}

// DeleteQuestionRequest is the body of DELETE /eliminar-pregunta
type DeleteQuestionRequest struct {
	IDPregunta *int `json:"idPregunta"`
}

// CategoryDeletion reports what DeleteCategory removed
type CategoryDeletion struct {
	Category         CategoryRef `json:"categoria"`
	QuestionsDeleted int64       `json:"preguntasEliminadas"`
	HistoryDeleted   int64       `json:"historialEliminado"`
	FolderRemoved    bool        `json:"carpetaEliminada"`
}

// QuestionRef is the short question form embedded in mutation responses
type QuestionRef struct {
	ID          int    `json:"id"`
	RutaAudio   string `json:"rutaAudio"`
	Respuesta   string `json:"respuesta"`
	Categoria   string `json:"categoria,omitempty"`
	IDCategoria int    `json:"idCategoria,omitempty"`
}

// QuestionDeletion reports what DeleteQuestion removed
type QuestionDeletion struct {
	Question       QuestionRef `json:"pregunta"`
	HistoryDeleted int64       `json:"historialEliminado"`
	FileRemoved    bool        `json:"archivoEliminado"`
}

// NewQuestion carries the validated fields of a question upload
type NewQuestion struct {
	Category  string
	Answer    string
	Extension string
}
