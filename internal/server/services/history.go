package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryService reads the audit log.
type HistoryService struct {
	core
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *HistoryService {
	return &HistoryService{core: newCore(db, m, cfg, opts)}
}

// List returns a page of the user's history, newest first.
func (s *HistoryService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repomanager.History(s.db).ListByUser(ctx, userID, limit, offset)
}
