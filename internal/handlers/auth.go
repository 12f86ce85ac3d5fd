package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 24 * time.Hour

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
// A zero tokenTTL falls back to 24h.
func NewAuthHandler(userService *services.UserService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		userService: userService,
		secret:      []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces JWT authentication and injects the subject into context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth([]byte(jwtSecret))
}

func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new account, starts the device session and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "create user")
		return
	}

	h.writeToken(w, http.StatusCreated, user)
}

// Login verifies credentials, starts the device session and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err, "authenticate")
		return
	}

	h.writeToken(w, http.StatusOK, user)
}

// Logout ends the device session. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Logout(r.Context()); err != nil {
		writeServiceError(w, err, "log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, status int, user types.User) {
	token, err := issueToken(user, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

const tokenIssuer = "bayni"

// tokenClaims carries the account type next to the subject so clients can
// pick the parent or doctor UI without another round trip.
type tokenClaims struct {
	UserType types.UserType `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

func issueToken(user types.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserType: user.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
