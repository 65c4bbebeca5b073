package repositories

import (
	"context"

	"github.com/gohanrohith/ed/internal/models"
	"gorm.io/gorm"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for name or email
	Role   string
	Limit  int // Page size
	Offset int // Offset for pagination
}

// UserRepository interface for user and roster operations
type UserRepository interface {
	// Basic read operations
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	// List and search operations
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	ListStudentsByAdmin(ctx context.Context, tx *gorm.DB, adminID string) ([]*models.User, error)
	ListStudentsByClass(ctx context.Context, tx *gorm.DB, classID string) ([]*models.User, error)

	// Roster management
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	CreateBatch(ctx context.Context, tx *gorm.DB, users []*models.User) error
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	BulkAssignClass(ctx context.Context, tx *gorm.DB, studentIDs []string, classID string) (int64, error)

	// Validation and checks
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
