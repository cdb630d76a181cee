package api

import (
	"encoding/json"
	"strings"

	"roulette-server/internal/auth"
	helper "roulette-server/internal/common/helper"
	"roulette-server/internal/common/response"
	"roulette-server/internal/config"

	beego "github.com/beego/beego/v2/server/web"
)

// AdminController 管理端会话：静态凭证换取 JWT、登出撤销
type AdminController struct{ beego.Controller }

type adminLoginParam struct {
	Token   string `json:"token"`   // 静态管理凭证
	Subject string `json:"subject"` // 管理员标识，进入 JWT claims
}

// Login 管理端登录：POST /api/admin/login
// 用静态管理凭证换取短期 JWT，后续管理接口优先携带 JWT
func (c *AdminController) Login() {
	traceID := helper.GetTraceID(c.Ctx)

	cfg := config.Get()
	if cfg == nil || !cfg.Auth.Admin.Enabled || cfg.Auth.Admin.Token == "" {
		response.ErrorWithMessage(&c.Controller, 403, response.CodeForbidden, "管理端未启用", traceID)
		return
	}

	var p adminLoginParam
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &p); err != nil {
		response.BadRequest(&c.Controller, "invalid json body", traceID)
		return
	}
	p.Subject = strings.TrimSpace(p.Subject)
	if p.Subject == "" || len(p.Subject) > 64 {
		response.BadRequest(&c.Controller, "missing required field: subject", traceID)
		return
	}
	if p.Token != cfg.Auth.Admin.Token {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeUnauthorized, "管理凭证错误", traceID)
		return
	}

	token, err := auth.GenerateAdminToken(p.Subject)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   cfg.Auth.JWT.AccessTokenTTL,
	}, traceID)
}

// Logout 管理端登出：POST /api/admin/logout
// 撤销当前 JWT（加入黑名单直至自然过期）；静态凭证无需撤销
func (c *AdminController) Logout() {
	traceID := helper.GetTraceID(c.Ctx)

	authHeader := strings.TrimSpace(c.Ctx.Input.Header("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.BadRequest(&c.Controller, "missing bearer token", traceID)
		return
	}
	tokenString := parts[1]

	cfg := config.Get()
	if cfg != nil && tokenString == cfg.Auth.Admin.Token {
		// 静态凭证直接视为登出成功
		response.Success(&c.Controller, nil, traceID)
		return
	}

	claims, err := auth.VerifyAdminToken(c.Ctx)
	if err != nil {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeInvalidToken, "无效的管理员Token", traceID)
		return
	}

	if err := auth.RevokeToken(c.Ctx.Request.Context(), tokenString, claims.ExpiresAt.Time); err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, nil, traceID)
}
