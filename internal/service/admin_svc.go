package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lumina_shop/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAdminDisabled      = errors.New("未配置管理员密码，后台登录已关闭")
)

// ==================== AdminService 后台认证 ====================

// AdminService 单管理员账号，密码以 bcrypt 哈希形式配置
type AdminService struct {
	username     string
	passwordHash []byte
	logger       *zap.Logger
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// NewAdminService passwordHash 为空时登录一律拒绝
func NewAdminService(username, passwordHash string, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		username:     username,
		passwordHash: []byte(passwordHash),
		logger:       logger.With(zap.String("component", "admin")),
	}
}

// Login 校验用户名与密码并签发 Token
func (s *AdminService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrAdminDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// 用户名错误时同样执行 bcrypt 比对
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || pwErr != nil {
		s.logger.Warn("后台登录失败", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := middleware.GenerateAccessToken(s.username, middleware.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("后台登录成功", zap.String("username", username))
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Username:    s.username,
	}, nil
}

// HashPassword 生成配置用的密码哈希
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("密码不能为空")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
