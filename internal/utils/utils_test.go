package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/i18n"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("utils-secret")
	SetJWTIssuer("marketplace-test")

	id := uuid.New()
	token, err := GenerateJWT(id, "alice", "ADMIN", 10)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "marketplace-test", claims.Issuer)

	SetJWTSecret("rotated")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	SetJWTSecret("utils-secret")

	token, err := GenerateJWT(uuid.New(), "bob", "USER", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestCustomValidationTags(t *testing.T) {
	type credentials struct {
		Username string `validate:"required,username"`
		Password string `validate:"required,password"`
	}

	testCases := []struct {
		name   string
		input  credentials
		fields []string
	}{
		{"valid", credentials{"alice42", "secret"}, nil},
		{"short username", credentials{"al", "secret"}, []string{"username"}},
		{"username with symbols", credentials{"alice!", "secret"}, []string{"username"}},
		{"short password", credentials{"alice", "abc"}, []string{"password"}},
		{"both missing", credentials{}, []string{"username", "password"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(tc.input)
			if tc.fields == nil {
				assert.NoError(t, err)
				return
			}

			var got []string
			for _, v := range GetValidationErrors(err) {
				got = append(got, v.Field)
			}
			assert.Equal(t, tc.fields, got)
		})
	}
}

func TestHandleErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, i18n.Initialize("en"))

	testCases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Validation("bad input"), http.StatusBadRequest, "BAD_REQUEST"},
		{apperrors.Auth("invalid credentials"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.Permission("not yours"), http.StatusForbidden, "FORBIDDEN"},
		{apperrors.NotFound("product"), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.Conflict("already sold"), http.StatusConflict, "CONFLICT"},
		{errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)

			var body APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "connection refused")
		})
	}
}

func TestPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	params := func(query string) PaginationParams {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		return GetPaginationParams(c)
	}

	p := params("")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = params("page=0&limit=500&order=sideways")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = params("page=3&limit=10&order=asc")
	result := CreatePaginationResult([]int{}, 25, p)
	assert.Equal(t, 3, result.TotalPages)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetPaginationHeaders(c, result)
	assert.Equal(t, "25", w.Header().Get("X-Total-Count"))
}
