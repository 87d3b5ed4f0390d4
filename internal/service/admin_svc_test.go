package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina_shop/internal/middleware"
)

func TestAdminService_Login(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewAdminService("admin", hash, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"登录成功", "admin", "s3cret", nil},
		{"密码错误", "admin", "wrong", ErrInvalidCredentials},
		{"用户名错误", "root", "s3cret", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin", res.Username)

			claims, err := middleware.ParseToken(res.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, middleware.RoleAdmin, claims.Role)
			assert.Equal(t, "admin", claims.Username)
		})
	}
}

func TestAdminService_Disabled(t *testing.T) {
	svc := NewAdminService("admin", "", nil)
	_, err := svc.Login(context.Background(), "admin", "anything")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	a, err := HashPassword("pw")
	require.NoError(t, err)
	b, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
