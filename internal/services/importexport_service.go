package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

// Column layouts shared by question import and export. Standard
// questions live on the first sheet; comprehension groups on their own
// sheet, where the passage cell is filled on a group's first row and
// left blank on the sub-question rows that follow.
var (
	questionColumns      = []string{"Category", "Question", "Option A", "Option B", "Option C", "Option D", "Correct Answers", "Solution"}
	comprehensionColumns = []string{"Category", "Passage", "Passage Solution", "Question", "Option A", "Option B", "Option C", "Option D", "Correct Answers", "Solution"}
)

const comprehensionSheet = "Comprehension"

var optionOrder = []assignment.OptionKey{"A", "B", "C", "D"}

type importExportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ImportQuestions loads one category bank from a spreadsheet: standard
// questions from the first sheet, comprehension groups from the
// "Comprehension" sheet when present. Rows that fail validation are
// skipped and reported, never fatal.
func (s *importExportService) ImportQuestions(ctx context.Context, reader io.Reader, chapterID string, category assignment.Category, creatorID string) (*ImportResult, error) {
	s.logger.Info("Importing questions",
		"chapter_id", chapterID,
		"category", category,
		"creator_id", creatorID)

	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if _, err := s.repo.Curriculum().GetChapter(ctx, s.db, chapterID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer file.Close()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	result := &ImportResult{}
	var questions []*models.ChapterQuestion
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		raw, err := parseQuestionRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}

		question := &models.ChapterQuestion{
			ID:        uuid.NewString(),
			ChapterID: chapterID,
			Category:  category,
			CreatedBy: creatorID,
		}
		if err := question.FromRaw(raw); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		questions = append(questions, question)
	}

	if idx, err := file.GetSheetIndex(comprehensionSheet); err == nil && idx >= 0 {
		compRows, err := file.GetRows(comprehensionSheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read comprehension sheet: %w", err)
		}
		groups, errs := parseComprehensionRows(compRows)
		result.Skipped += len(errs)
		result.Errors = append(result.Errors, errs...)
		for _, raw := range groups {
			question := &models.ChapterQuestion{
				ID:        uuid.NewString(),
				ChapterID: chapterID,
				Category:  category,
				CreatedBy: creatorID,
			}
			if err := question.FromRaw(raw); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			questions = append(questions, question)
		}
	}

	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, nil, questions); err != nil {
			return nil, fmt.Errorf("failed to create questions: %w", err)
		}
	}
	result.Imported = len(questions)

	s.logger.Info("Question import finished",
		"chapter_id", chapterID,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

// ExportQuestions writes a chapter's full bank, all five categories, into
// one spreadsheet.
func (s *importExportService) ExportQuestions(ctx context.Context, chapterID string) ([]byte, error) {
	pools, err := s.repo.Question().GetPool(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)

	for col, title := range questionColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		file.SetCellValue(sheet, cell, title)
	}

	if _, err := file.NewSheet(comprehensionSheet); err != nil {
		return nil, fmt.Errorf("failed to add comprehension sheet: %w", err)
	}
	for col, title := range comprehensionColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		file.SetCellValue(comprehensionSheet, cell, title)
	}

	row, compRow := 2, 2
	for _, category := range assignment.Categories() {
		for _, q := range pools[category] {
			if q.IsComprehension() {
				compRow = writeComprehensionGroup(file, compRow, category, q)
				continue
			}
			writeQuestionRow(file, sheet, row, category, q)
			row++
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportScores writes the score history of every student in a class since
// the given date.
func (s *importExportService) ExportScores(ctx context.Context, classID string, since time.Time) ([]byte, error) {
	students, err := s.repo.User().ListStudentsByClass(ctx, s.db, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)

	headers := []string{"Student", "Email", "Chapter", "Level", "Score", "Total Questions", "Time Taken (s)", "Submitted At"}
	for col, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		file.SetCellValue(sheet, cell, title)
	}

	row := 2
	for _, student := range students {
		scores, _, err := s.repo.Score().ListByStudent(ctx, s.db, student.ID, 1000, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list scores for %s: %w", student.ID, err)
		}
		for _, score := range scores {
			if score.CreatedAt.Before(since) {
				continue
			}
			values := []interface{}{
				student.FullName,
				student.Email,
				score.ChapterID,
				score.Level,
				score.Score,
				score.TotalQuestions,
				score.TimeTaken,
				score.CreatedAt.Format(time.RFC3339),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				file.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== ROW CODEC =====

func parseQuestionRow(row []string) (assignment.RawQuestion, error) {
	return parseAnswerableCells(row, 1)
}

// parseAnswerableCells reads one answerable question starting at the
// Question column: text, four option cells, comma-separated answer keys
// and an optional solution.
func parseAnswerableCells(row []string, base int) (assignment.RawQuestion, error) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	raw := assignment.RawQuestion{Text: get(base), Solution: get(base + 6)}
	if raw.Text == "" {
		return raw, fmt.Errorf("empty question text")
	}

	raw.Options = make(map[assignment.OptionKey]assignment.Option)
	for i, key := range optionOrder {
		if text := get(base + 1 + i); text != "" {
			raw.Options[key] = assignment.Option{Text: text}
		}
	}
	if len(raw.Options) < 2 {
		return raw, fmt.Errorf("need at least two options")
	}

	for _, part := range strings.Split(get(base+5), ",") {
		key := assignment.OptionKey(strings.ToUpper(strings.TrimSpace(part)))
		if key == "" {
			continue
		}
		if _, ok := raw.Options[key]; !ok {
			return raw, fmt.Errorf("answer key %q has no matching option", key)
		}
		raw.CorrectAnswers = append(raw.CorrectAnswers, key)
	}
	if len(raw.CorrectAnswers) == 0 {
		return raw, fmt.Errorf("no correct answers")
	}
	return raw, nil
}

// parseComprehensionRows groups the comprehension sheet into passage
// questions. A filled Passage cell opens a new group; the row itself and
// the blank-passage rows after it each contribute one sub-question.
func parseComprehensionRows(rows [][]string) ([]assignment.RawQuestion, []string) {
	get := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var groups []assignment.RawQuestion
	var errs []string
	var current *assignment.RawQuestion

	flush := func() {
		if current == nil {
			return
		}
		if len(current.SubQuestions) == 0 {
			errs = append(errs, fmt.Sprintf("passage %q has no sub-questions", current.Passage))
		} else {
			groups = append(groups, *current)
		}
		current = nil
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if passage := get(row, 1); passage != "" {
			flush()
			current = &assignment.RawQuestion{
				Passage:         passage,
				PassageSolution: get(row, 2),
			}
		}
		if current == nil {
			errs = append(errs, fmt.Sprintf("row %d: sub-question before any passage", i+1))
			continue
		}
		if get(row, 3) == "" && get(row, 8) == "" {
			continue // passage-only row
		}
		sub, err := parseAnswerableCells(row, 3)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		current.SubQuestions = append(current.SubQuestions, sub)
	}
	flush()
	return groups, errs
}

func writeQuestionRow(file *excelize.File, sheet string, row int, category assignment.Category, q assignment.RawQuestion) {
	answers := make([]string, len(q.CorrectAnswers))
	for i, key := range q.CorrectAnswers {
		answers[i] = string(key)
	}

	values := []interface{}{string(category), q.Text}
	for _, key := range optionOrder {
		values = append(values, q.Options[key].Text)
	}
	values = append(values, strings.Join(answers, ","), q.Solution)

	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		file.SetCellValue(sheet, cell, v)
	}
}

// writeComprehensionGroup writes one passage question onto the
// comprehension sheet, passage cells on the first row only, and returns
// the next free row.
func writeComprehensionGroup(file *excelize.File, row int, category assignment.Category, q assignment.RawQuestion) int {
	for i, sub := range q.SubQuestions {
		answers := make([]string, len(sub.CorrectAnswers))
		for j, key := range sub.CorrectAnswers {
			answers[j] = string(key)
		}

		values := []interface{}{string(category)}
		if i == 0 {
			values = append(values, q.Passage, q.PassageSolution)
		} else {
			values = append(values, "", "")
		}
		values = append(values, sub.Text)
		for _, key := range optionOrder {
			values = append(values, sub.Options[key].Text)
		}
		values = append(values, strings.Join(answers, ","), sub.Solution)

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			file.SetCellValue(comprehensionSheet, cell, v)
		}
		row++
	}
	return row
}
