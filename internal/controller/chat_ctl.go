package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lumina_shop/internal/api/dto"
	"lumina_shop/internal/middleware"
	"lumina_shop/internal/model"
	"lumina_shop/internal/service"
)

// ChatController 导购对话
type ChatController struct {
	chats   *service.ChatService
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewChatController(chats *service.ChatService, catalog *service.CatalogService, logger *zap.Logger) *ChatController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatController{chats: chats, catalog: catalog, logger: logger}
}

func (c *ChatController) session(ctx *gin.Context) *service.ChatSession {
	return c.chats.Session(middleware.GetSessionID(ctx))
}

// Messages 对话历史
// @Router /api/chat [get]
func (c *ChatController) Messages(ctx *gin.Context) {
	cs := c.session(ctx)
	respondOK(ctx, "ok", gin.H{
		"messages": cs.Messages(),
		"pending":  cs.Busy(),
	})
}

// Send 发送消息
// @Router /api/chat [post]
func (c *ChatController) Send(ctx *gin.Context) {
	var req dto.ChatSendReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	cs := c.session(ctx)
	msg, err := cs.Send(ctx.Request.Context(), req.Text)
	c.reply(ctx, cs, msg, err)
}

// Ask 商品详情页"问问 AI"
// @Router /api/chat/ask/{id} [post]
func (c *ChatController) Ask(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, err := c.catalog.Product(id)
	if err != nil {
		respondError(ctx, http.StatusNotFound, err.Error())
		return
	}
	cs := c.session(ctx)
	msg, err := cs.AskAboutProduct(ctx.Request.Context(), p)
	c.reply(ctx, cs, msg, err)
}

// CancelPending 取消进行中的请求
// @Router /api/chat/pending [delete]
func (c *ChatController) CancelPending(ctx *gin.Context) {
	respondOK(ctx, "ok", gin.H{"cancelled": c.session(ctx).Cancel()})
}

// reply 降级回复仍以 200 返回
func (c *ChatController) reply(ctx *gin.Context, cs *service.ChatSession, msg model.ChatMessage, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrAssistantBusy):
		respondError(ctx, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		c.logger.Warn("导购回复已降级", zap.String("session", middleware.GetSessionID(ctx)), zap.Error(err))
	}

	respondOK(ctx, "ok", dto.ChatReplyResp{
		Message:  msg,
		Products: cs.RecommendedProducts(msg.RecommendedProductIDs),
		Degraded: err != nil,
	})
}
