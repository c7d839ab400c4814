// internal/handlers/auth.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type AuthHandler struct {
	authService    *services.AuthService
	productService *services.ProductService
}

func NewAuthHandler(authService *services.AuthService, productService *services.ProductService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		productService: productService,
	}
}

// POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if !bindRequest(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthRegisterSuccess),
		"user":    user,
	})
}

// POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, h.authService.Login)
}

// POST /api/users/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, h.authService.AdminLogin)
}

func (h *AuthHandler) login(c *gin.Context, authenticate func(ctx context.Context, req *services.LoginRequest) (*services.AuthResponse, error)) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindRequest(c, &req) {
		return
	}

	authResponse, err := authenticate(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"user":       authResponse.User,
		"token":      authResponse.Token,
		"token_type": authResponse.TokenType,
		"expires_in": authResponse.ExpiresIn,
	})
}

// GET /api/users/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /api/users/products
func (h *AuthHandler) GetMyProducts(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	products, err := h.productService.ListUserProducts(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}
