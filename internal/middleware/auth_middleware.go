package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
	jsonres "electroCare/pkg/response"
	"electroCare/pkg/utils"

	"github.com/labstack/echo/v4"
)

// TokenValidator resolves a session token to the user id it was issued for.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

// AuthMiddleware authenticates the bearer token (or the access_token query
// parameter used by websocket clients), checks the session is still live and
// loads the caller's current role from the users table.
func AuthMiddleware(tokenValidator TokenValidator, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing authorization header", nil,
				))
			}

			claims, err := utils.ParseJWT(tokenString)
			if err != nil {
				logger.Warn("Failed to parse JWT", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			expAt, err := claims.GetExpirationTime()
			if err != nil || expAt == nil || time.Now().After(expAt.Time) {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Token expired", nil,
				))
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			userID, err := tokenValidator.ValidateToken(ctx, tokenString)
			if err != nil {
				logger.Warn("Session not found", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Token expired or invalid", nil,
				))
			}

			if userID != claims.UserID {
				logger.Error("UserID mismatch between JWT and session store", "jwt", claims.UserID, "session", userID)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			userIDUint, err := strconv.ParseUint(claims.UserID, 10, 64)
			if err != nil {
				logger.Error("Invalid user ID in token", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid user ID in token", nil,
				))
			}

			// The role in the token is advisory; promotions take effect
			// without a new login.
			user, err := users.FindByID(ctx, uint(userIDUint))
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, jsonres.Error(
						"UNAUTHORIZED", "User no longer exists", nil,
					))
				}
				logger.Error("Failed to load user for token", err, "user_id", userIDUint)
				return c.JSON(http.StatusInternalServerError, jsonres.Error(
					"INTERNAL_ERROR", "Failed to authenticate", nil,
				))
			}

			c.Set("user_id", user.ID)
			c.Set("role", user.Role)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		token := c.QueryParam("access_token")
		return token, token != ""
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return "", false
	}

	return tokenParts[1], true
}

// ActorFrom returns the caller resolved by AuthMiddleware.
func ActorFrom(c echo.Context) (domain.Actor, bool) {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return domain.Actor{}, false
	}

	role, ok := c.Get("role").(string)
	if !ok {
		return domain.Actor{}, false
	}

	return domain.Actor{ID: userID, Role: role}, true
}

// RequireAction rejects callers whose role is not granted the action.
func RequireAction(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "User not authenticated", nil,
				))
			}

			if !policy.Can(actor.Role, action) {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Your role cannot perform "+string(action), nil,
				))
			}

			return next(c)
		}
	}
}
