package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avvvet/numbet-services/internal/auth"
	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AdminService struct {
	admins    AdminRepository
	tokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
}

func NewAdminService(admins AdminRepository, tokenAuth *jwtauth.JWTAuth, tokenTTL time.Duration) *AdminService {
	return &AdminService{admins: admins, tokenAuth: tokenAuth, tokenTTL: tokenTTL}
}

type AdminSession struct {
	Admin *models.Admin `json:"admin"`
	Token string        `json:"token"`
}

// Login compares the password against the stored bcrypt hash and issues an admin JWT.
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Invalid("Email and password are required")
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "Admin not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, apperr.Invalid("Invalid password")
	}

	claims := map[string]interface{}{
		"sub":  admin.ID.Hex(),
		"role": auth.RoleAdmin,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, s.tokenTTL)

	_, token, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	log.Infof("admin %s logged in", admin.Email)
	return &AdminSession{Admin: admin, Token: token}, nil
}

// EnsureAdmin creates or updates the configured admin account.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return errors.New("admin email and password must both be set")
	}

	if existing, err := s.admins.GetByEmail(ctx, email); err == nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.Password), []byte(password)) == nil {
			return nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.admins.Upsert(ctx, &models.Admin{Email: email, Password: string(hash), Role: auth.RoleAdmin}); err != nil {
		return err
	}
	log.Infof("admin account %s provisioned", email)
	return nil
}
