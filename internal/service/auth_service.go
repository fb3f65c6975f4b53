package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"

	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/auth"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService interface {
	MemberLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	StaffLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	SetMemberPassword(ctx context.Context, memberID int64, password string) error
}

type authService struct {
	members postgres.MemberRepo
	staff   postgres.StaffRepo
	config  *config.Config
}

func NewAuthService(members postgres.MemberRepo, staff postgres.StaffRepo, cfg *config.Config) AuthService {
	return &authService{members: members, staff: staff, config: cfg}
}

func (s *authService) MemberLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	member, err := s.members.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil || member.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, member.PasswordHash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	ttl := s.config.Auth.MemberTokenTTL
	token, err := auth.NewMemberToken(member.ID, member.Email, s.config.Auth.JWTSecret, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
		Role:        "member",
	}, nil
}

func (s *authService) StaffLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	staff, err := s.staff.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	if staff == nil {
		return nil, ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, staff.PasswordHash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	ttl := s.config.Auth.StaffTokenTTL
	token, err := auth.NewStaffToken(staff.ID, staff.Email, staff.Role, s.config.Auth.JWTSecret, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
		Role:        staff.Role,
	}, nil
}

func (s *authService) SetMemberPassword(ctx context.Context, memberID int64, password string) error {
	if len(password) < 8 {
		return domain.ErrValidation("password must be at least 8 characters")
	}

	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return domain.ErrMemberNotFound
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.members.SetPassword(ctx, memberID, hash)
}
