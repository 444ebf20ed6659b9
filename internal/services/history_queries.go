package services

import (
	"context"
	"database/sql"
	"errors"

	"auscultify/internal/database"
	"auscultify/internal/models"
)

// loadCategoryAccuracy groups a user's answer history by category, ordered by category id
func loadCategoryAccuracy(ctx context.Context, q database.Querier, userID int) ([]models.CategoryAccuracy, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.idCategorias, c.nombreCategoria, COUNT(*) AS total,
			SUM(CASE WHEN h.respuestaCorrecta = 1 THEN 1 ELSE 0 END) AS aciertos
		FROM Usuarios_has_Preguntas h
		JOIN Preguntas p ON p.idPregunta = h.Preguntas_idPregunta
		JOIN Categorias c ON c.idCategorias = p.Categorias_idCategorias
		WHERE h.Usuarios_idUsuario = ?
		GROUP BY c.idCategorias, c.nombreCategoria
		ORDER BY c.idCategorias`, userID)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to aggregate history by category")
	}
	defer func() { _ = rows.Close() }()

	out := []models.CategoryAccuracy{}
	for rows.Next() {
		var a models.CategoryAccuracy
		if err := rows.Scan(&a.CategoryID, &a.CategoryName, &a.Answered, &a.Correct); err != nil {
			return nil, database.ClassifyError(err, "failed to scan category aggregate")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to aggregate history by category")
	}
	return out, nil
}

func userExists(ctx context.Context, q database.Querier, userID int) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM Usuarios WHERE idUsuario = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.ClassifyError(err, "failed to check user")
	}
	return true, nil
}
