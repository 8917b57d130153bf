package user

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"oldb/middleware"
	"oldb/pkg/logger"
)

var ErrInvalidCredentials = errors.New("the email and password provided are not valid")

type Service struct {
	Repo      *Repository
	JWTSecret string
}

func NewService(repo *Repository, jwtSecret string) *Service {
	return &Service{Repo: repo, JWTSecret: jwtSecret}
}

// Login verifies the credentials and issues a signed token.
func (s *Service) Login(email, password string) (*LoginResponse, error) {
	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := middleware.GenerateToken(s.JWTSecret, u.ID, u.Email, u.Role, u.Unrestricted)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: *u}, nil
}

// SeedAdmin creates the initial administrator when the users table is empty.
func (s *Service) SeedAdmin(email, password string) error {
	if password == "" {
		return nil
	}
	count, err := s.Repo.Count()
	if err != nil || count > 0 {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := s.Repo.Create(email, string(hash), RoleAdministrator, true)
	if err != nil {
		return err
	}
	logger.Sugar.Infof("Seeded administrator %s (id %d)", email, id)
	return nil
}
