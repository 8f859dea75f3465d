package service

import (
	"errors"
	"time"

	"cs-chatbot-be/internal/config"
	"cs-chatbot-be/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// IAuthService issues the admin token used by the document endpoints and
// the ops websocket feed.
type IAuthService interface {
	Login(req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	adminEmail   string
	passwordHash string
	jwtSecret    string
}

func NewAuthService(cfg config.AdminConfig) IAuthService {
	return &authService{
		adminEmail:   cfg.Email,
		passwordHash: cfg.PasswordHash,
		jwtSecret:    cfg.JwtSecret,
	}
}

func (as *authService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Email != as.adminEmail {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(as.passwordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"email": req.Email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{Token: signed}, nil
}
