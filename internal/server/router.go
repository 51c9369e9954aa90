package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/body"
	"github.com/macrolab/macrolog/internal/exercise"
	"github.com/macrolab/macrolog/internal/foodlog"
	"github.com/macrolab/macrolog/internal/ingredients"
	"github.com/macrolab/macrolog/internal/macros"
	"github.com/macrolab/macrolog/internal/profile"
	"github.com/macrolab/macrolog/internal/recipes"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// tokenSubject names the single account every issued JWT is bound to.
const tokenSubject = "owner"

var (
	errMissingAPIToken          = errors.New("api token dependency required")
	errMissingTokenManager      = errors.New("token manager dependency required")
	errMissingIngredientService = errors.New("ingredient service dependency required")
	errMissingRecipeService     = errors.New("recipe service dependency required")
	errMissingFoodService       = errors.New("food log service dependency required")
	errMissingMacroService      = errors.New("macro service dependency required")
	errMissingProfileService    = errors.New("profile service dependency required")
	errMissingBodyService       = errors.New("body service dependency required")
	errMissingExerciseService   = errors.New("exercise service dependency required")
	errInvalidAuthorization     = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates the API's session JWTs.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies carries everything the HTTP handler needs.
type Dependencies struct {
	APIToken     string
	TokenManager TokenManager
	Ingredients  *ingredients.Service
	Recipes      *recipes.Service
	Foods        *foodlog.Service
	Macros       *macros.Service
	Profile      *profile.Service
	Body         *body.Service
	Exercise     *exercise.Service
	Logger       *zap.Logger
}

// NewHTTPHandler assembles the gin router with all resource routes behind
// bearer auth. Only token exchange is public.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if strings.TrimSpace(deps.APIToken) == "" {
		return nil, errMissingAPIToken
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Ingredients == nil {
		return nil, errMissingIngredientService
	}
	if deps.Recipes == nil {
		return nil, errMissingRecipeService
	}
	if deps.Foods == nil {
		return nil, errMissingFoodService
	}
	if deps.Macros == nil {
		return nil, errMissingMacroService
	}
	if deps.Profile == nil {
		return nil, errMissingProfileService
	}
	if deps.Body == nil {
		return nil, errMissingBodyService
	}
	if deps.Exercise == nil {
		return nil, errMissingExerciseService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		apiToken:    deps.APIToken,
		tokens:      deps.TokenManager,
		ingredients: deps.Ingredients,
		recipes:     deps.Recipes,
		foods:       deps.Foods,
		macros:      deps.Macros,
		profile:     deps.Profile,
		body:        deps.Body,
		exercise:    deps.Exercise,
		logger:      logger,
	}

	router.POST("/auth/token", handler.handleTokenExchange)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/ingredients", handler.handleIngredientCreate)
	protected.GET("/ingredients", handler.handleIngredientList)
	protected.GET("/ingredients/:id", handler.handleIngredientGet)
	protected.PATCH("/ingredients/:id", handler.handleIngredientUpdate)
	protected.DELETE("/ingredients/:id", handler.handleIngredientDelete)

	protected.POST("/recipes", handler.handleRecipeCreate)
	protected.GET("/recipes", handler.handleRecipeList)
	protected.GET("/recipes/:id", handler.handleRecipeGet)
	protected.PATCH("/recipes/:id", handler.handleRecipeRename)
	protected.DELETE("/recipes/:id", handler.handleRecipeDelete)
	protected.POST("/recipes/:id/items", handler.handleRecipeItemAdd)
	protected.PATCH("/recipes/:id/items/:itemID", handler.handleRecipeItemUpdate)
	protected.DELETE("/recipes/:id/items/:itemID", handler.handleRecipeItemRemove)

	protected.POST("/foods", handler.handleFoodCreate)
	protected.POST("/foods/from-recipe", handler.handleFoodCreateFromRecipe)
	protected.GET("/foods", handler.handleFoodList)
	protected.PATCH("/foods/:id", handler.handleFoodUpdate)
	protected.DELETE("/foods/:id", handler.handleFoodDelete)
	protected.DELETE("/foods", handler.handleFoodBulkDelete)

	protected.GET("/macros/today", handler.handleMacrosToday)
	protected.GET("/macros/remaining", handler.handleMacrosRemaining)
	protected.GET("/macros/history", handler.handleMacrosHistory)

	protected.GET("/profile", handler.handleProfileGet)
	protected.PATCH("/profile", handler.handleProfileUpdate)

	protected.POST("/body", handler.handleBodyCreate)
	protected.GET("/body", handler.handleBodyList)
	protected.GET("/body/latest", handler.handleBodyLatest)
	protected.GET("/body/:id", handler.handleBodyGet)
	protected.PATCH("/body/:id", handler.handleBodyUpdate)
	protected.DELETE("/body/:id", handler.handleBodyDelete)

	protected.POST("/exercises", handler.handleExerciseCreate)
	protected.GET("/exercises", handler.handleExerciseList)
	protected.GET("/exercises/:id", handler.handleExerciseGet)
	protected.PATCH("/exercises/:id", handler.handleExerciseUpdate)
	protected.DELETE("/exercises/:id", handler.handleExerciseDelete)

	return router, nil
}

type httpHandler struct {
	apiToken    string
	tokens      TokenManager
	ingredients *ingredients.Service
	recipes     *recipes.Service
	foods       *foodlog.Service
	macros      *macros.Service
	profile     *profile.Service
	body        *body.Service
	exercise    *exercise.Service
	logger      *zap.Logger
}

type tokenRequestPayload struct {
	APIToken string `json:"api_token"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// handleTokenExchange swaps the static API token for a short-lived JWT.
func (h *httpHandler) handleTokenExchange(c *gin.Context) {
	var request tokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.APIToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(request.APIToken), []byte(h.apiToken)) != 1 {
		h.logger.Warn("token exchange rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), tokenSubject)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

// authorizeRequest accepts either the raw API token or a previously issued
// JWT as the bearer credential.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(h.apiToken)) == 1 {
		c.Next()
		return
	}

	if _, err := h.tokens.ValidateToken(token); err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// requestIDMiddleware tags every request with an identifier, honoring one
// supplied by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// respondError maps a service failure onto the wire contract:
// {"error": <operation code>} with the kind-derived status.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindValidation:
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	code := apperr.CodeOf(err)
	if code == "" {
		code = "internal"
	}
	c.JSON(status, gin.H{"error": code})
}

// pathID parses the named numeric path parameter, responding 404 on garbage.
func (h *httpHandler) pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return uint(value), true
}
