package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/storage"
)

var ErrSelfConnect = errors.New("cannot send a connection request to yourself")

// RequestService is the connection workflow. Connect writes a pending record
// on both sides, independently and without a transaction: a partial failure
// can leave one side written, and no reconciliation pass ever runs.
type RequestService interface {
	Connect(ctx context.Context, senderID, recipientID string) error
	// ListForUser returns the pending records stored under the given user,
	// keyed by the counterpart. The records are direction-less: a pair of them
	// represents a mutual request with no further negotiated state.
	ListForUser(ctx context.Context, userID string) ([]*models.ConnectionRequest, error)
	Close(ctx context.Context) error
}

// requestKey identifies the record stored under owner and keyed by the
// counterpart. Re-sending overwrites rather than duplicates.
type requestKey struct {
	OwnerID string
	OtherID string
}

// FileRequestService is the file-backed implementation.
type FileRequestService struct {
	mu       sync.Mutex
	requests map[requestKey]*models.ConnectionRequest
	store    *storage.JSONStore
}

func NewFileRequestService(dataDir string) (*FileRequestService, error) {
	store, err := storage.NewJSONStore(dataDir, "requests.json")
	if err != nil {
		return nil, err
	}

	s := &FileRequestService{
		requests: make(map[requestKey]*models.ConnectionRequest),
		store:    store,
	}

	var loaded []*models.ConnectionRequest
	if err := store.Load(&loaded); err != nil {
		return nil, err
	}
	for _, r := range loaded {
		s.requests[requestKey{OwnerID: r.OwnerID, OtherID: r.OtherID}] = r
	}
	return s, nil
}

func (s *FileRequestService) persistLocked() error {
	out := make([]*models.ConnectionRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r)
	}
	return s.store.Save(out)
}

func (s *FileRequestService) Connect(ctx context.Context, senderID, recipientID string) error {
	if senderID == recipientID {
		return ErrSelfConnect
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Recipient's record first, then the sender's mirror, matching the order
	// the two writes are issued against the real store.
	s.putLocked(recipientID, senderID)
	s.putLocked(senderID, recipientID)

	return s.persistLocked()
}

func (s *FileRequestService) putLocked(ownerID, otherID string) {
	key := requestKey{OwnerID: ownerID, OtherID: otherID}
	existing, ok := s.requests[key]
	if ok {
		// Overwrite-by-key: a re-send rewrites identical content.
		existing.Status = models.RequestStatusPending
		existing.Since = nil
		return
	}
	s.requests[key] = &models.ConnectionRequest{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		OtherID:   otherID,
		Status:    models.RequestStatusPending,
		Since:     nil,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *FileRequestService) ListForUser(ctx context.Context, userID string) ([]*models.ConnectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.ConnectionRequest{}
	for key, r := range s.requests {
		if key.OwnerID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FileRequestService) Close(ctx context.Context) error { return nil }
