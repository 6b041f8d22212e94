package repository

import (
	"context"
	"database/sql"
	"fmt"

	"quizforge/internal/domain"

	"github.com/jmoiron/sqlx"
)

// QuestionDatabaseAdapter implements domain.QuestionRepository using sqlx.DB
// over the sqlite question bank.
type QuestionDatabaseAdapter struct {
	db       *sqlx.DB
	resolver domain.TagResolver
}

// questionRow mirrors the questions table.
type questionRow struct {
	ID         string `db:"id"`
	Text       string `db:"text"`
	Type       string `db:"type"`
	UsageCount int    `db:"usage_count"`
}

// answerRow mirrors the question_answers table.
type answerRow struct {
	QuestionID string `db:"question_id"`
	Position   int    `db:"position"`
	Text       string `db:"text"`
	IsCorrect  bool   `db:"is_correct"`
}

// NewQuestionDatabaseAdapter creates a new adapter. The resolver translates
// tag names or aliases into tag ids for tag-filtered queries.
func NewQuestionDatabaseAdapter(db *sqlx.DB, resolver domain.TagResolver) domain.QuestionRepository {
	return &QuestionDatabaseAdapter{db: db, resolver: resolver}
}

// GetAllQuestions implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) GetAllQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	var rows []questionRow
	query := `SELECT id, text, type, usage_count FROM questions ORDER BY id`
	if err := a.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return a.hydrate(ctx, rows)
}

// GetQuestionsByTags implements domain.QuestionRepository. Matching is
// ANY-tag: a question qualifies when it carries at least one of the named
// tags.
func (a *QuestionDatabaseAdapter) GetQuestionsByTags(ctx context.Context, tagNames []string) ([]domain.QuestionRecord, error) {
	tagIDs := a.resolver.ResolveTagNames(tagNames)
	if len(tagIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT DISTINCT q.id, q.text, q.type, q.usage_count
		FROM questions q
		JOIN question_tags qt ON qt.question_id = q.id
		WHERE qt.tag_id IN (?)
		ORDER BY q.id`, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag query: %w", err)
	}
	query = a.db.Rebind(query)

	var rows []questionRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list questions by tags: %w", err)
	}
	return a.hydrate(ctx, rows)
}

// hydrate attaches answers and tag associations to the base rows.
func (a *QuestionDatabaseAdapter) hydrate(ctx context.Context, rows []questionRow) ([]domain.QuestionRecord, error) {
	records := make([]domain.QuestionRecord, 0, len(rows))
	for _, row := range rows {
		record := domain.QuestionRecord{
			ID:         row.ID,
			Text:       row.Text,
			Type:       domain.QuestionType(row.Type),
			UsageCount: row.UsageCount,
		}

		var answers []answerRow
		answerQuery := `SELECT question_id, position, text, is_correct
			FROM question_answers WHERE question_id = ? ORDER BY position`
		if err := a.db.SelectContext(ctx, &answers, a.db.Rebind(answerQuery), row.ID); err != nil {
			return nil, fmt.Errorf("failed to load answers for question %s: %w", row.ID, err)
		}
		for _, ans := range answers {
			record.Answers = append(record.Answers, domain.Answer{Text: ans.Text, IsCorrect: ans.IsCorrect})
		}

		tagQuery := `SELECT tag_id FROM question_tags WHERE question_id = ? ORDER BY tag_id`
		if err := a.db.SelectContext(ctx, &record.TagIDs, a.db.Rebind(tagQuery), row.ID); err != nil {
			return nil, fmt.Errorf("failed to load tags for question %s: %w", row.ID, err)
		}

		records = append(records, record)
	}
	return records, nil
}

// SaveQuestion implements domain.QuestionRepository. Answers and tag links
// are replaced wholesale inside one transaction.
func (a *QuestionDatabaseAdapter) SaveQuestion(ctx context.Context, q *domain.QuestionRecord) error {
	if err := q.Validate(); err != nil {
		return err
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `INSERT INTO questions (id, text, type, usage_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text, type = excluded.type`
	if _, err := tx.ExecContext(ctx, tx.Rebind(upsert), q.ID, q.Text, string(q.Type), q.UsageCount); err != nil {
		return fmt.Errorf("failed to save question %s: %w", q.ID, err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM question_answers WHERE question_id = ?`), q.ID); err != nil {
		return fmt.Errorf("failed to clear answers for question %s: %w", q.ID, err)
	}
	for i, ans := range q.Answers {
		insert := `INSERT INTO question_answers (question_id, position, text, is_correct) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, tx.Rebind(insert), q.ID, i, ans.Text, ans.IsCorrect); err != nil {
			return fmt.Errorf("failed to save answer for question %s: %w", q.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM question_tags WHERE question_id = ?`), q.ID); err != nil {
		return fmt.Errorf("failed to clear tags for question %s: %w", q.ID, err)
	}
	for _, tagID := range q.TagIDs {
		insert := `INSERT INTO question_tags (question_id, tag_id) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, tx.Rebind(insert), q.ID, tagID); err != nil {
			return fmt.Errorf("failed to save tag link for question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}

// IncrementUsage implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) IncrementUsage(ctx context.Context, questionID string) error {
	query := `UPDATE questions SET usage_count = usage_count + 1 WHERE id = ?`
	res, err := a.db.ExecContext(ctx, a.db.Rebind(query), questionID)
	if err != nil {
		return fmt.Errorf("failed to increment usage for question %s: %w", questionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReassignTag implements domain.QuestionRepository. With an empty target the
// association is dropped rather than moved.
func (a *QuestionDatabaseAdapter) ReassignTag(ctx context.Context, fromTagID, toTagID string) error {
	if toTagID == "" {
		query := `DELETE FROM question_tags WHERE tag_id = ?`
		if _, err := a.db.ExecContext(ctx, a.db.Rebind(query), fromTagID); err != nil {
			return fmt.Errorf("failed to drop tag links for %s: %w", fromTagID, err)
		}
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Drop rows that would collide with an existing (question, target) link,
	// then repoint the rest.
	dedupe := `DELETE FROM question_tags WHERE tag_id = ? AND question_id IN (
		SELECT question_id FROM question_tags WHERE tag_id = ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(dedupe), fromTagID, toTagID); err != nil {
		return fmt.Errorf("failed to dedupe tag links for %s: %w", fromTagID, err)
	}
	repoint := `UPDATE question_tags SET tag_id = ? WHERE tag_id = ?`
	if _, err := tx.ExecContext(ctx, tx.Rebind(repoint), toTagID, fromTagID); err != nil {
		return fmt.Errorf("failed to repoint tag links from %s to %s: %w", fromTagID, toTagID, err)
	}

	return tx.Commit()
}
