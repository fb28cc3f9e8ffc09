package utils_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redibo/backend/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteJSON(rec, http.StatusCreated, map[string]int{"count": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteError(rec, http.StatusBadRequest, "filtro invalido", errors.New("leido: valor no booleano"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"filtro invalido","details":"leido: valor no booleano"}`, rec.Body.String())
}

func TestWriteError_SinCausa(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteError(rec, http.StatusNotFound, "notificacion no encontrada", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"notificacion no encontrada"}`, rec.Body.String())
}
