package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/storage"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
)

// AccountService is the local identity gateway: email/password accounts with
// bcrypt hashes. Unused when Firebase token verification is configured.
type AccountService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Close(ctx context.Context) error
}

// FileAccountService keeps accounts in memory with JSON file persistence.
type FileAccountService struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	byEmail  map[string]string
	store    *storage.JSONStore
}

func NewFileAccountService(dataDir string) (*FileAccountService, error) {
	store, err := storage.NewJSONStore(dataDir, "accounts.json")
	if err != nil {
		return nil, err
	}

	s := &FileAccountService{
		accounts: make(map[string]*models.Account),
		byEmail:  make(map[string]string),
		store:    store,
	}
	if err := store.Load(&s.accounts); err != nil {
		return nil, err
	}
	for id, acc := range s.accounts {
		s.byEmail[acc.Email] = id
	}
	return s, nil
}

func (s *FileAccountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[req.Email]; exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	s.accounts[account.ID] = account
	s.byEmail[account.Email] = account.ID

	if err := s.store.Save(s.accounts); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *FileAccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[req.Email]
	if !exists {
		return nil, ErrAccountNotFound
	}

	account := s.accounts[id]
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return account, nil
}

func (s *FileAccountService) GetByID(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return nil, ErrAccountNotFound
	}

	return account, nil
}

func (s *FileAccountService) Close(ctx context.Context) error { return nil }
