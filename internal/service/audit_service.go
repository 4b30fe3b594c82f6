package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByActor(ctx context.Context, actor domain.Address, limit int) ([]domain.AuditLog, error)
}

// AuditEntry is the write-side shape services hand to the audit worker.
type AuditEntry struct {
	Actor        domain.Address
	UserType     domain.UserType
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	RequestID    string
	IPAddress    string
	Outcome      string
}

type AuditService struct {
	repo    AuditRepository
	log     *zap.Logger
	entries chan *domain.AuditLog
	done    chan struct{}
}

const auditBufferSize = 10_000

func NewAuditService(repo AuditRepository, log *zap.Logger) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log,
		entries: make(chan *domain.AuditLog, auditBufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) LogAsync(ctx context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		Actor:        entry.Actor,
		UserType:     entry.UserType,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		RequestID:    entry.RequestID,
		IPAddress:    entry.IPAddress,
		Outcome:      entry.Outcome,
	}

	select {
	case s.entries <- al:
	default:
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

// History returns an actor's most recent audit entries, newest first.
func (s *AuditService) History(ctx context.Context, actor domain.Address, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListByActor(ctx, actor, limit)
}

func (s *AuditService) Shutdown() {
	close(s.entries)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		}
		cancel()
	}
}
