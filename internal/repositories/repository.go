package repositories

import "context"

// Repository aggregates every entity repository behind one interface.
type Repository interface {
	// Question banks
	Question() QuestionRepository

	// Assignment sessions and score history
	Session() SessionRepository
	Score() ScoreRepository

	// Student progress ledger
	Progress() ProgressRepository

	// Curriculum reads (classes, subjects, chapters)
	Curriculum() CurriculumRepository

	// User domain (backed by Casdoor with a local mirror)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
