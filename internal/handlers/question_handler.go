package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"auscultify/internal/config"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"
	"auscultify/internal/storage"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgAudioRequired    = "El archivo de audio es requerido"
	msgAudioInvalidType = "Tipo de archivo no válido. Solo se permiten archivos de audio."
	msgAudioTooLarge    = "El archivo de audio no puede superar el tamaño máximo permitido"
)

// multipart parts above this size spill to temporary files
const multipartMemory = 8 << 20

// form fields sent next to the audio part
const multipartFieldSlack = 1 << 20

// QuestionHandler serves the question catalog routes
type QuestionHandler struct {
	questionService services.QuestionServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewQuestionHandler creates a new QuestionHandler instance
func NewQuestionHandler(questionService services.QuestionServiceInterface, cfg *config.Config, logger *observability.Logger) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, cfg: cfg, logger: logger}
}

func payloadTooLarge() error {
	return contextutils.NewAppError(contextutils.ErrorCodePayloadTooLarge, contextutils.SeverityInfo, msgAudioTooLarge, "")
}

// CreateQuestion handles the multipart POST /crear-pregunta
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_question")
	defer observability.FinishSpan(span, nil)

	maxBytes := h.cfg.Storage.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartFieldSlack)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleAppError(c, payloadTooLarge())
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			HandleAppError(c, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgInvalidBody, "", err))
			return
		}
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgAudioRequired, ""))
		return
	}
	defer func() { _ = file.Close() }()

	span.SetAttributes(
		attribute.String("upload.filename", header.Filename),
		attribute.Int64("upload.size", header.Size),
		attribute.String("upload.content_type", header.Header.Get("Content-Type")),
	)

	if header.Size > maxBytes {
		HandleAppError(c, payloadTooLarge())
		return
	}
	if !storage.AllowedUpload(header.Header.Get("Content-Type"), header.Filename) {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityInfo, msgAudioInvalidType, header.Filename))
		return
	}

	audio, detected, err := sniffAudio(file)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	ref, err := h.questionService.CreateQuestion(ctx, models.NewQuestion{
		Category:  c.Request.FormValue("categoria"),
		Answer:    c.Request.FormValue("respuesta"),
		Extension: storage.AudioExtension(header.Filename, detected),
	}, audio)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"mensaje":  "Pregunta creada correctamente",
		"pregunta": ref,
	})
}

// sniffAudio reads the head of the upload to reject content that is clearly not audio and
// returns a reader that replays the head
func sniffAudio(file multipart.File) (io.Reader, string, error) {
	head := make([]byte, storage.SniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", contextutils.WrapError(err, "failed to read uploaded audio")
	}
	head = head[:n]
	if n == 0 {
		return nil, "", contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgAudioRequired, "")
	}

	detected, ok := storage.DetectAudio(head)
	if !ok {
		return nil, "", contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityInfo, msgAudioInvalidType, detected)
	}
	return io.MultiReader(bytes.NewReader(head), file), detected, nil
}

// ListQuestions handles GET /obtener-preguntas?categoria=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_questions")
	defer observability.FinishSpan(span, nil)

	questions, err := h.questionService.ListQuestions(ctx, c.Query("categoria"), requestBaseURL(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preguntas": questions, "total": len(questions)})
}

// DeleteQuestion handles DELETE /eliminar-pregunta
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_question")
	defer observability.FinishSpan(span, nil)

	var req models.DeleteQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	id := 0
	if req.IDPregunta != nil {
		id = *req.IDPregunta
	}

	deletion, err := h.questionService.DeleteQuestion(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje":            "Pregunta eliminada correctamente",
		"pregunta":           deletion.Question,
		"historialEliminado": deletion.HistoryDeleted,
		"archivoEliminado":   deletion.FileRemoved,
	})
}

// requestBaseURL rebuilds scheme://host as the client saw it
func requestBaseURL(c *gin.Context) string {
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + c.Request.Host
}
