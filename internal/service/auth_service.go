package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkamdem/assoflow-api/internal/models"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

type authMemberRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

// AuthServiceConfig holds token issuance settings.
type AuthServiceConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService authenticates members and issues signed access tokens.
type AuthService struct {
	members   authMemberRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AuthServiceConfig
	now       func() time.Time
}

// NewAuthService constructs AuthService.
func NewAuthService(members authMemberRepository, cfg AuthServiceConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = 24 * time.Hour
	}
	return &AuthService{members: members, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Login verifies credentials and returns a signed token. Unknown emails
// and wrong passwords produce the same error message.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	member, err := s.members.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, serviceError(err, "failed to load member")
	}
	if !member.Active {
		return nil, appErrors.ErrInactiveAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	issuedAt := s.now().UTC()
	token, err := s.signToken(member, issuedAt)
	if err != nil {
		return nil, serviceError(err, "failed to sign token")
	}

	if err := s.members.UpdateLastLogin(ctx, member.ID, issuedAt); err != nil {
		// login still succeeds; the timestamp is informational
		s.logger.Warn("failed to record last login", zap.String("member_id", member.ID), zap.Error(err))
	}

	s.logger.Info("member logged in", zap.String("member_id", member.ID))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.Expiration.Seconds()),
		IssuedAt:    issuedAt,
		Member: models.MemberInfo{
			ID:       member.ID,
			Email:    member.Email,
			FullName: member.FullName,
			Role:     member.Role,
		},
	}, nil
}

// ValidateToken parses and verifies an access token, returning its
// claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) signToken(member *models.Member, issuedAt time.Time) (string, error) {
	claims := models.JWTClaims{
		MemberID: member.ID,
		Email:    member.Email,
		Role:     member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.cfg.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
