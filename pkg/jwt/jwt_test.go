package jwt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := jwt.Generate("s3cret", "u-42", jwt.RoleAdmin, "erp", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.UserID)
	assert.Equal(t, jwt.RoleAdmin, claims.Role)
	assert.Equal(t, "erp", claims.Issuer)
}

func TestParse_FirmaIncorrectaOExpirado(t *testing.T) {
	tok, err := jwt.Generate("s3cret", "u-42", jwt.RoleOperator, "erp", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)

	expired, err := jwt.Generate("s3cret", "u-42", jwt.RoleOperator, "erp", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cret", expired)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "u", jwt.RoleAdmin, "erp", 5)
	assert.True(t, errors.Is(err, jwt.ErrEmptySecret))
	_, err = jwt.Parse("", "x")
	assert.True(t, errors.Is(err, jwt.ErrEmptySecret))
}
