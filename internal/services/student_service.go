package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewStudentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) StudentService {
	return &studentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest, adminID string) (*models.User, error) {
	s.logger.Info("Creating student",
		"email", req.Email,
		"admin_id", adminID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.AdminID != adminID {
		return nil, NewPermissionError(adminID, req.AdminID, "student", "create", "students can only be registered under the requesting admin")
	}
	isAdmin, err := s.repo.User().HasRole(ctx, adminID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to check admin role: %w", err)
	}
	if !isAdmin {
		return nil, NewPermissionError(adminID, req.AdminID, "student", "create", "only admins can register students")
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("user with email %s already exists", req.Email)
	}

	if req.ClassID != nil {
		if _, err := s.repo.Curriculum().GetClass(ctx, s.db, *req.ClassID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrClassNotFound
			}
			return nil, fmt.Errorf("failed to get class: %w", err)
		}
	}

	student := &models.User{
		ID:       uuid.NewString(),
		FullName: req.FullName,
		Email:    req.Email,
		Role:     models.RoleStudent,
		AdminID:  &req.AdminID,
		ClassID:  req.ClassID,
	}
	if err := s.repo.User().Create(ctx, nil, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.logger.Info("Student created", "student_id", student.ID)
	return student, nil
}

// CreateBatch registers several students atomically. One bad row
// rejects the whole batch.
func (s *studentService) CreateBatch(ctx context.Context, req *BatchCreateStudentRequest, adminID string) (*StudentListResponse, error) {
	s.logger.Info("Creating student batch",
		"count", len(req.Students),
		"admin_id", adminID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	isAdmin, err := s.repo.User().HasRole(ctx, adminID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to check admin role: %w", err)
	}
	if !isAdmin {
		return nil, NewPermissionError(adminID, adminID, "student", "create_batch", "only admins can register students")
	}

	seen := make(map[string]bool, len(req.Students))
	students := make([]*models.User, 0, len(req.Students))
	for _, row := range req.Students {
		if row.AdminID != adminID {
			return nil, NewPermissionError(adminID, row.AdminID, "student", "create_batch", "students can only be registered under the requesting admin")
		}
		if seen[row.Email] {
			return nil, fmt.Errorf("duplicate email %s in batch", row.Email)
		}
		seen[row.Email] = true

		exists, err := s.repo.User().ExistsByEmail(ctx, row.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("user with email %s already exists", row.Email)
		}
		if row.ClassID != nil {
			if _, err := s.repo.Curriculum().GetClass(ctx, s.db, *row.ClassID); err != nil {
				if repositories.IsNotFoundError(err) {
					return nil, ErrClassNotFound
				}
				return nil, fmt.Errorf("failed to get class: %w", err)
			}
		}

		adminRef := row.AdminID
		students = append(students, &models.User{
			ID:       uuid.NewString(),
			FullName: row.FullName,
			Email:    row.Email,
			Role:     models.RoleStudent,
			AdminID:  &adminRef,
			ClassID:  row.ClassID,
		})
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.User().CreateBatch(ctx, nil, students)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create students: %w", err)
	}

	s.logger.Info("Student batch created", "count", len(students))
	return &StudentListResponse{
		Students: students,
		Total:    int64(len(students)),
	}, nil
}

// Update patches a student on the requesting admin's roster.
func (s *studentService) Update(ctx context.Context, id string, req *UpdateStudentRequest, adminID string) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	student, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, ErrStudentNotFound
	}
	if student.AdminID == nil || *student.AdminID != adminID {
		return nil, NewPermissionError(adminID, id, "student", "update", "student is registered under another admin")
	}

	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Email != nil && *req.Email != student.Email {
		exists, err := s.repo.User().ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("user with email %s already exists", *req.Email)
		}
		student.Email = *req.Email
	}
	if req.ClassID != nil {
		if _, err := s.repo.Curriculum().GetClass(ctx, s.db, *req.ClassID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrClassNotFound
			}
			return nil, fmt.Errorf("failed to get class: %w", err)
		}
		student.ClassID = req.ClassID
	}

	if err := s.repo.User().Update(ctx, nil, student); err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	s.logger.Info("Student updated", "student_id", student.ID)
	return student, nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*models.User, error) {
	student, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

// List searches the roster with optional name/email query and role
// filter.
func (s *studentService) List(ctx context.Context, filters repositories.UserFilters) (*StudentListResponse, error) {
	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &StudentListResponse{
		Students: users,
		Total:    total,
	}, nil
}

func (s *studentService) ListByAdmin(ctx context.Context, adminID string) (*StudentListResponse, error) {
	students, err := s.repo.User().ListStudentsByAdmin(ctx, s.db, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return &StudentListResponse{
		Students: students,
		Total:    int64(len(students)),
	}, nil
}

func (s *studentService) ListByClass(ctx context.Context, classID string) (*StudentListResponse, error) {
	if _, err := s.repo.Curriculum().GetClass(ctx, s.db, classID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	students, err := s.repo.User().ListStudentsByClass(ctx, s.db, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return &StudentListResponse{
		Students: students,
		Total:    int64(len(students)),
	}, nil
}

// BulkAssign moves a set of students into a class. Students outside the
// requesting admin's roster are rejected, not skipped.
func (s *studentService) BulkAssign(ctx context.Context, req *BulkAssignRequest, adminID string) (*BulkAssignResponse, error) {
	s.logger.Info("Bulk assigning students",
		"class_id", req.ClassID,
		"count", len(req.StudentIDs),
		"admin_id", adminID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.repo.Curriculum().GetClass(ctx, s.db, req.ClassID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	students, err := s.repo.User().GetByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	if len(students) != len(req.StudentIDs) {
		return nil, ErrStudentNotFound
	}
	for _, student := range students {
		if student.AdminID == nil || *student.AdminID != adminID {
			return nil, NewPermissionError(adminID, student.ID, "student", "bulk_assign", "student is registered under another admin")
		}
	}

	assigned, err := s.repo.User().BulkAssignClass(ctx, nil, req.StudentIDs, req.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign students: %w", err)
	}

	s.logger.Info("Students assigned", "class_id", req.ClassID, "assigned", assigned)
	return &BulkAssignResponse{Assigned: assigned}, nil
}
