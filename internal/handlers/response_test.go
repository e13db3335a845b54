package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"loralinka/internal/models"
	"loralinka/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestParseExpand(t *testing.T) {
	tests := []struct {
		query string
		want  models.Expansions
		err   bool
	}{
		{"", models.ExpandAll, false},
		{"?expand=unit", models.Expansions{Unit: true}, false},
		{"?expand=user,accident_type", models.Expansions{Reporter: true, AccidentType: true}, false},
		{"?expand=none", models.Expansions{}, false},
		{"?expand=units", models.Expansions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := parseExpand(httptest.NewRequest(http.MethodGet, "/emergencies/1"+tt.query, nil))
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{invalid("limit", "must be between 1 and 1000"), http.StatusUnprocessableEntity},
		{fmt.Errorf("emergency 3: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrUnitNameTaken, http.StatusBadRequest},
		{services.ErrUnitOccupied, http.StatusConflict},
		{services.ErrPhoneTaken, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("hash password: %w", bcrypt.ErrPasswordTooLong), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"detail"`)
		})
	}
}
