//go:build integration

package di

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"auscultify/internal/models"
)

// wavHeader is enough of a RIFF/WAVE file for the store, which does not inspect content
var wavHeader = []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")

func uniqueSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000_000)
}

// registerUser creates a throwaway account and removes it when the test ends
func (s *ServiceContainerIntegrationTestSuite) registerUser(ctx context.Context) *models.User {
	users, err := s.Container.GetUserService()
	s.Require().NoError(err)

	email := "flujo-" + uniqueSuffix() + "@example.com"
	user, err := users.Register(ctx, models.RegisterRequest{Usuario: email, Contrasena1: "secreto1", Contrasena2: "secreto1"})
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		s.NoError(users.DeleteAccount(context.Background(), email, "secreto1"))
	})
	return user
}

// createQuestion adds a fresh category holding one question and removes both when the test ends
func (s *ServiceContainerIntegrationTestSuite) createQuestion(ctx context.Context, answer string) *models.QuestionRef {
	categories, err := s.Container.GetCategoryService()
	s.Require().NoError(err)
	questions, err := s.Container.GetQuestionService()
	s.Require().NoError(err)

	category, err := categories.CreateCategory(ctx, "Cardiaco "+uniqueSuffix())
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		_, err := categories.DeleteCategory(context.Background(), models.DeleteCategoryRequest{IDCategoria: &category.ID})
		s.NoError(err)
	})

	question, err := questions.CreateQuestion(ctx, models.NewQuestion{Category: category.Name, Answer: answer, Extension: ".wav"}, bytes.NewReader(wavHeader))
	s.Require().NoError(err)
	s.Equal(category.ID, question.IDCategoria)
	s.FileExists(s.Config.Storage.AudioRoot + "/" + question.RutaAudio)
	return question
}

func (s *ServiceContainerIntegrationTestSuite) TestUnseenQuestionsAreExhaustedBySessions() {
	ctx := context.Background()
	user := s.registerUser(ctx)
	question := s.createQuestion(ctx, "Soplo")

	selection, err := s.Container.GetSelectionService()
	s.Require().NoError(err)
	statistics, err := s.Container.GetStatisticsService()
	s.Require().NoError(err)

	// other tests may have left questions behind, so answer every unseen one batch by batch
	seen := false
	for range 100 {
		result, err := selection.Select(ctx, models.StrategyUnseen, models.SelectionRequest{UserID: &user.ID})
		s.Require().NoError(err)
		if len(result.Preguntas) == 0 {
			break
		}

		answers := make([]models.AnswerResult, 0, len(result.Preguntas))
		for _, item := range result.Preguntas {
			if item.IDPregunta == question.ID {
				seen = true
				s.Equal("Soplo", item.RespuestaCorrecta)
			}
			answers = append(answers, models.AnswerResult{QuestionID: item.IDPregunta, Correct: true})
		}
		_, err = statistics.RecordSession(ctx, models.SessionRequest{UsuarioID: &user.ID, PreguntasResultados: answers})
		s.Require().NoError(err)
	}
	s.True(seen, "the new question was never offered as unseen")

	result, err := selection.Select(ctx, models.StrategyUnseen, models.SelectionRequest{UserID: &user.ID})
	s.Require().NoError(err)
	s.Empty(result.Preguntas)
}

func (s *ServiceContainerIntegrationTestSuite) TestStatisticsForNewUser() {
	ctx := context.Background()
	user := s.registerUser(ctx)

	statistics, err := s.Container.GetStatisticsService()
	s.Require().NoError(err)

	stats, err := statistics.GetStatistics(ctx, user.ID)
	s.Require().NoError(err)
	s.Nil(stats.CategoriaMasUsada)
	s.Zero(stats.PorcentajeGeneral)
	s.Equal(models.UserTotals{}, stats.DatosUsuario)
	s.Equal(make([]int, 7), stats.PreguntasPor7Dias)
	s.Equal(make([]int, 7), stats.PreguntasAcertadasPor7Dias)
	s.Equal(make([]int, 7), stats.PreguntasFalladasPor7Dias)

	question := s.createQuestion(ctx, "Crepitante")
	_, err = statistics.RecordSession(ctx, models.SessionRequest{
		UsuarioID:           &user.ID,
		PreguntasResultados: []models.AnswerResult{{QuestionID: question.ID, Correct: true}},
	})
	s.Require().NoError(err)

	stats, err = statistics.GetStatistics(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(1, stats.DatosUsuario.TotalPreguntasAcertadas)
	s.Equal(1, stats.DatosUsuario.TotalPreguntasContestadas)
	s.Equal(1, stats.DatosUsuario.Racha)
	s.Equal(float64(100), stats.PorcentajeGeneral)
	s.Equal(1, stats.PreguntasAcertadasPor7Dias[6])
	s.Require().NotNil(stats.CategoriaMasUsada)
	s.Equal(question.Categoria, *stats.CategoriaMasUsada)
}
