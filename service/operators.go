package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"friday/models"
	"friday/repository"
)

// TokenIssuer signs operator session tokens.
type TokenIssuer interface {
	GenerateJWT(operatorID, username string) (string, error)
}

type OperatorService struct {
	operators repository.OperatorRepository
	tokens    TokenIssuer
}

func NewOperatorService(operators repository.OperatorRepository, tokens TokenIssuer) *OperatorService {
	return &OperatorService{operators: operators, tokens: tokens}
}

func (s *OperatorService) Create(ctx context.Context, username, password string) (*models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.operators.Create(ctx, username, string(hash))
}

// Authenticate checks the password and returns a signed token for the operator.
func (s *OperatorService) Authenticate(ctx context.Context, username, password string) (string, *models.Operator, error) {
	op, err := s.operators.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.tokens.GenerateJWT(strconv.FormatInt(op.ID, 10), op.Username)
	if err != nil {
		return "", nil, err
	}
	return token, op, nil
}
