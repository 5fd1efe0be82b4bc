// Package handler 提供 HTTP 请求的处理函数
// Handler 层只做参数绑定和响应转换，业务逻辑在 Service 层
package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"

	"arzuno-builder-server/internal/middleware"
	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// AuthHandler 认证相关的请求处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register 用户注册
// 路由: POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			response.UserExists(c)
			return
		}
		response.InternalError(c, "注册失败")
		return
	}

	response.Created(c, result)
}

// Login 用户登录
// 路由: POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.UserNotFound(c)
		case errors.Is(err, service.ErrPasswordWrong):
			response.PasswordWrong(c)
		case errors.Is(err, service.ErrUserDisabled):
			response.Forbidden(c, "账号已被禁用")
		default:
			response.InternalError(c, "登录失败")
		}
		return
	}

	response.Success(c, result)
}

// Refresh 刷新 Access Token
// 路由: POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req service.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), &req)
	if err != nil {
		response.Unauthorized(c, "refresh token 无效或已过期")
		return
	}

	response.Success(c, result)
}

// Logout 用户登出
// 把当前 Token 加入黑名单
// 路由: POST /api/v1/auth/logout（需要认证）
func (h *AuthHandler) Logout(c *gin.Context) {
	// 认证中间件已把 Token 和过期时间放进上下文
	token := c.GetString("token")
	expVal, _ := c.Get("token_exp")

	expireAt := time.Now()
	if exp, ok := expVal.(*jwtlib.NumericDate); ok && exp != nil {
		expireAt = exp.Time
	}

	if err := h.authService.Logout(c.Request.Context(), middleware.HashToken(token), expireAt); err != nil {
		response.InternalError(c, "登出失败")
		return
	}

	response.SuccessWithMessage(c, "已登出", nil)
}
