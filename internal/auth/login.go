package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sizemo/ocreceipt/internal/models"
)

// UserStore is the account lookup the login handler needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service issues tokens for valid credentials.
type Service struct {
	users UserStore
	cfg   models.AuthConfig
}

func NewService(users UserStore, cfg models.AuthConfig) *Service {
	return &Service{users: users, cfg: cfg}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginHandler handles user authentication
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error":"username and password are required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil || !user.IsActive || !VerifyPassword(req.Password, user.PasswordSalt, user.PasswordHash) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := GenerateToken(user, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		http.Error(w, `{"error":"failed to generate token"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(LoginResponse{
		Token:    token,
		UserID:   user.ID.String(),
		Username: user.Username,
		Role:     user.Role,
	})
}
