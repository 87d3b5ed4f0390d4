package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lumina_shop/internal/service"
)

// ==================== 统一响应 ====================

func respondOK(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data":    data,
	})
}

func respondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// respondMutation 持久化失败时内存中的修改已生效，仍返回 200 并附带 warning
func respondMutation(ctx *gin.Context, message string, data interface{}, err error) {
	if err == nil {
		respondOK(ctx, message, data)
		return
	}
	if errors.Is(err, service.ErrPersist) {
		ctx.JSON(http.StatusOK, gin.H{
			"code":    0,
			"message": message,
			"warning": "修改已生效，但保存失败: " + err.Error(),
			"data":    data,
		})
		return
	}
	respondError(ctx, http.StatusInternalServerError, err.Error())
}

// parseIDParam 解析路径中的数字 ID
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, "无效的ID: "+ctx.Param(name))
		return 0, false
	}
	return id, true
}
