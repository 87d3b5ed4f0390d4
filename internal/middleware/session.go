package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionHeader 浏览器会话标识
	SessionHeader = "X-Session-ID"

	ContextKeySession = "session_id"
)

// Session 读取 X-Session-ID，缺失或非法时生成新的 uuid，并回写到响应头
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextKeySession, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// GetSessionID 从 Context 获取会话ID
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeySession); exists {
		return id.(string)
	}
	return ""
}
