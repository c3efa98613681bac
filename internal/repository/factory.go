package repository

import (
	"github.com/mietevo/mietevo-backend/internal/domain/application"
	"github.com/mietevo/mietevo-backend/internal/domain/docs"
	"github.com/mietevo/mietevo-backend/internal/domain/queue"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/postgres"
	postgresRepo "github.com/mietevo/mietevo-backend/internal/repository/postgres"
)

func NewQueueRepository(db postgres.IClient, logger *logger.Logger) queue.Repository {
	return postgresRepo.NewQueueRepository(db, logger)
}

func NewApplicationRepository(db postgres.IClient, logger *logger.Logger) application.Repository {
	return postgresRepo.NewApplicationRepository(db, logger)
}

func NewDocsRepository(db postgres.IClient, logger *logger.Logger) docs.Repository {
	return postgresRepo.NewDocsRepository(db, logger)
}
