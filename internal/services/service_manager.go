package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Session engine constants (questions per session, page size,
	// drag-drop count, timer)
	Session assignment.Config
	// Seed for the session shuffler; 0 means seed from the clock.
	RandomSeed int64

	// Service-specific configurations
	Assignment ServiceConfig
	Question   ServiceConfig
	Progress   ServiceConfig
	Curriculum ServiceConfig

	// Global settings
	DefaultTimeout    time.Duration
	MaxRetries        int
	RateLimitingRules map[string]RateLimit
}

type ServiceConfig struct {
	Enabled         bool
	CacheEnabled    bool
	CacheTTL        time.Duration
	ValidationLevel ValidationLevel
}

type ValidationLevel int

const (
	ValidationBasic ValidationLevel = iota
	ValidationStrict
	ValidationFull
)

type RateLimit struct {
	RequestsPerMinute int
	BurstSize         int
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	sink      assignment.ResultsSink
	config    ServiceManagerConfig

	// Service instances
	assignmentService   AssignmentService
	questionService     QuestionService
	progressService     ProgressService
	curriculumService   CurriculumService
	studentService      StudentService
	importExportService ImportExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies.
// The sink receives score and progress records at submission; pass nil to
// disable delivery.
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, sink assignment.ResultsSink, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		sink:      sink,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, sink assignment.ResultsSink) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Session: assignment.DefaultConfig(),

		Assignment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			ValidationLevel: ValidationStrict,
		},
		Question: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationFull,
		},
		Progress: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        5 * time.Minute,
			ValidationLevel: ValidationStrict,
		},
		Curriculum: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationBasic,
		},

		DefaultTimeout:    30 * time.Second,
		MaxRetries:        3,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(db, repo, logger, validator, sink, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	seed := sm.config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	runner := assignment.NewRunner(sm.config.Session, rng, nil, sm.sink, sm.logger)

	// Initialize AssignmentService
	if sm.config.Assignment.Enabled {
		sm.assignmentService = NewAssignmentService(sm.repo, sm.db, sm.logger, sm.validator, runner, nil)
		sm.logger.Info("Assignment service initialized")
	}

	// Initialize QuestionService
	if sm.config.Question.Enabled {
		sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Question service initialized")
	}

	// Initialize ProgressService
	if sm.config.Progress.Enabled {
		sm.progressService = NewProgressService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Progress service initialized")
	}

	// Initialize CurriculumService
	if sm.config.Curriculum.Enabled {
		sm.curriculumService = NewCurriculumService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Curriculum service initialized")
	}

	// Initialize StudentService
	sm.studentService = NewStudentService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Student service initialized")

	// Initialize ImportExportService
	sm.importExportService = NewImportExportService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("ImportExport service initialized")

	return nil
}

// Service getters
func (sm *serviceManager) Assignment() AssignmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Assignment.Enabled && sm.assignmentService != nil {
		return sm.assignmentService
	}

	panic("assignment service not enabled or not initialized")
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Question.Enabled && sm.questionService != nil {
		return sm.questionService
	}

	panic("question service not enabled or not initialized")
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Progress.Enabled && sm.progressService != nil {
		return sm.progressService
	}

	panic("progress service not enabled or not initialized")
}

func (sm *serviceManager) Curriculum() CurriculumService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Curriculum.Enabled && sm.curriculumService != nil {
		return sm.curriculumService
	}

	panic("curriculum service not enabled or not initialized")
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.studentService != nil {
		return sm.studentService
	}

	panic("student service not initialized")
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.importExportService != nil {
		return sm.importExportService
	}

	panic("import/export service not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if manager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := manager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if manager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := manager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// GetConfig returns the service manager configuration
func (sm *serviceManager) GetConfig() ServiceManagerConfig {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.config
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}

// ===== CONFIGURATION VALIDATION =====

// Validate checks the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DefaultTimeout <= 0 {
		errors = append(errors, "default timeout must be positive")
	}
	if config.MaxRetries < 0 {
		errors = append(errors, "max retries cannot be negative")
	}
	if config.Session.TotalQuestions <= 0 {
		errors = append(errors, "session total questions must be positive")
	}
	if config.Session.PageSize <= 0 {
		errors = append(errors, "session page size must be positive")
	}
	if config.Session.TimerSeconds <= 0 {
		errors = append(errors, "session timer must be positive")
	}
	if config.Session.DragDropCount < 0 {
		errors = append(errors, "drag-drop count cannot be negative")
	}

	for _, sc := range []struct {
		name string
		cfg  ServiceConfig
	}{
		{"assignment", config.Assignment},
		{"question", config.Question},
		{"progress", config.Progress},
		{"curriculum", config.Curriculum},
	} {
		if sc.cfg.CacheTTL < 0 {
			errors = append(errors, fmt.Sprintf("%s: cache TTL cannot be negative", sc.name))
		}
		if sc.cfg.ValidationLevel < ValidationBasic || sc.cfg.ValidationLevel > ValidationFull {
			errors = append(errors, fmt.Sprintf("%s: invalid validation level", sc.name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

// ===== FACTORY FUNCTIONS =====

// CreateProductionServiceManager creates a service manager configured for production
func CreateProductionServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, sink assignment.ResultsSink, session assignment.Config) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Session: session,

		Assignment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false, // Real-time data
			ValidationLevel: ValidationStrict,
		},
		Question: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        30 * time.Minute,
			ValidationLevel: ValidationFull,
		},
		Progress: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        5 * time.Minute,
			ValidationLevel: ValidationStrict,
		},
		Curriculum: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationBasic,
		},

		DefaultTimeout: 60 * time.Second,
		MaxRetries:     3,
		RateLimitingRules: map[string]RateLimit{
			"session_start":   {RequestsPerMinute: 100, BurstSize: 20},
			"session_submit":  {RequestsPerMinute: 200, BurstSize: 50},
			"question_create": {RequestsPerMinute: 60, BurstSize: 10},
		},
	}

	return NewServiceManager(db, repo, logger, validator, sink, config)
}

// CreateDevelopmentServiceManager creates a service manager configured for development
func CreateDevelopmentServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, sink assignment.ResultsSink, session assignment.Config) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: true,
		LogLevel:           slog.LevelDebug,

		Session: session,

		Assignment: ServiceConfig{
			Enabled:         true,
			ValidationLevel: ValidationBasic,
		},
		Question: ServiceConfig{
			Enabled:         true,
			ValidationLevel: ValidationBasic,
		},
		Progress: ServiceConfig{
			Enabled:         true,
			ValidationLevel: ValidationBasic,
		},
		Curriculum: ServiceConfig{
			Enabled:         true,
			ValidationLevel: ValidationBasic,
		},

		DefaultTimeout:    10 * time.Second,
		MaxRetries:        1,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(db, repo, logger, validator, sink, config)
}
