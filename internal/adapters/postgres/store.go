package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/espalierhq/espalier/pkg/flow"
)

// Store implements ports.SurveyStore on PostgreSQL. Determinants are
// persisted in their tagged form, a (next_kind, next_target) column pair,
// never a bare nullable number.
type Store struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS surveys (
	id         BIGINT PRIMARY KEY,
	title      TEXT NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	validated  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS questions (
	id           BIGINT NOT NULL,
	survey_id    BIGINT NOT NULL REFERENCES surveys (id) ON DELETE CASCADE,
	order_index  INT NOT NULL,
	question_type TEXT NOT NULL,
	text         TEXT NOT NULL,
	next_kind    TEXT,
	next_target  BIGINT,
	PRIMARY KEY (survey_id, id)
);

CREATE TABLE IF NOT EXISTS options (
	id           BIGINT NOT NULL,
	survey_id    BIGINT NOT NULL,
	question_id  BIGINT NOT NULL,
	order_index  INT NOT NULL,
	text         TEXT NOT NULL,
	next_kind    TEXT,
	next_target  BIGINT,
	PRIMARY KEY (survey_id, question_id, id),
	FOREIGN KEY (survey_id, question_id) REFERENCES questions (survey_id, id) ON DELETE CASCADE
);
`

type surveyRow struct {
	ID        int64  `db:"id"`
	Title     string `db:"title"`
	Version   int64  `db:"version"`
	Validated bool   `db:"validated"`
}

type questionRow struct {
	ID         int64          `db:"id"`
	SurveyID   int64          `db:"survey_id"`
	OrderIndex int            `db:"order_index"`
	Type       string         `db:"question_type"`
	Text       string         `db:"text"`
	NextKind   sql.NullString `db:"next_kind"`
	NextTarget sql.NullInt64  `db:"next_target"`
}

type optionRow struct {
	ID         int64          `db:"id"`
	SurveyID   int64          `db:"survey_id"`
	QuestionID int64          `db:"question_id"`
	OrderIndex int            `db:"order_index"`
	Text       string         `db:"text"`
	NextKind   sql.NullString `db:"next_kind"`
	NextTarget sql.NullInt64  `db:"next_target"`
}

// Survey loads the full definition graph.
func (s *Store) Survey(ctx context.Context, id int64) (*flow.Survey, error) {
	var sr surveyRow
	err := s.db.GetContext(ctx, &sr, `SELECT id, title, version, validated FROM surveys WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flow.ErrSurveyNotFound
		}
		return nil, fmt.Errorf("loading survey %d: %w", id, err)
	}

	var qrs []questionRow
	err = s.db.SelectContext(ctx, &qrs,
		`SELECT id, survey_id, order_index, question_type, text, next_kind, next_target
		 FROM questions WHERE survey_id = $1 ORDER BY order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("loading questions of survey %d: %w", id, err)
	}

	var ors []optionRow
	err = s.db.SelectContext(ctx, &ors,
		`SELECT id, survey_id, question_id, order_index, text, next_kind, next_target
		 FROM options WHERE survey_id = $1 ORDER BY question_id, order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("loading options of survey %d: %w", id, err)
	}

	optsByQuestion := make(map[int64][]flow.Option)
	for _, or := range ors {
		det, err := determinantFromColumns(or.NextKind, or.NextTarget)
		if err != nil {
			return nil, fmt.Errorf("option %d of question %d: %w", or.ID, or.QuestionID, err)
		}
		optsByQuestion[or.QuestionID] = append(optsByQuestion[or.QuestionID], flow.Option{
			ID:         or.ID,
			Text:       or.Text,
			OrderIndex: or.OrderIndex,
			Next:       det,
		})
	}

	questions := make([]flow.Question, 0, len(qrs))
	for _, qr := range qrs {
		det, err := determinantFromColumns(qr.NextKind, qr.NextTarget)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", qr.ID, err)
		}
		questions = append(questions, flow.Question{
			ID:          qr.ID,
			Text:        qr.Text,
			Type:        flow.QuestionType(qr.Type),
			OrderIndex:  qr.OrderIndex,
			DefaultNext: det,
			Options:     optsByQuestion[qr.ID],
		})
	}

	survey := flow.NewSurvey(sr.ID, sr.Title, strconv.FormatInt(sr.Version, 10), questions)
	survey.Validated = sr.Validated
	return survey, nil
}

// SaveSurvey replaces the definition in one transaction, bumping the
// version and clearing the validated flag.
func (s *Store) SaveSurvey(ctx context.Context, sv *flow.Survey) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO surveys (id, title, version, validated) VALUES ($1, $2, 1, FALSE)
		 ON CONFLICT (id) DO UPDATE SET title = $2, version = surveys.version + 1, validated = FALSE`,
		sv.ID, sv.Title)
	if err != nil {
		return fmt.Errorf("saving survey %d: %w", sv.ID, err)
	}

	// Versions only move forward, so replacing the rows wholesale is safe:
	// responses reference questions through their pinned version, not
	// through foreign keys into the live definition.
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE survey_id = $1`, sv.ID); err != nil {
		return fmt.Errorf("clearing questions of survey %d: %w", sv.ID, err)
	}

	for i := range sv.Questions {
		q := &sv.Questions[i]
		kind, target := determinantToColumns(q.DefaultNext)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, survey_id, order_index, question_type, text, next_kind, next_target)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			q.ID, sv.ID, q.OrderIndex, string(q.Type), q.Text, kind, target)
		if err != nil {
			return fmt.Errorf("saving question %d: %w", q.ID, pgError(err))
		}

		for j := range q.Options {
			opt := &q.Options[j]
			kind, target := determinantToColumns(opt.Next)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO options (id, survey_id, question_id, order_index, text, next_kind, next_target)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				opt.ID, sv.ID, q.ID, opt.OrderIndex, opt.Text, kind, target)
			if err != nil {
				return fmt.Errorf("saving option %d of question %d: %w", opt.ID, q.ID, pgError(err))
			}
		}
	}

	return tx.Commit()
}

// Activate marks the given version validated. The version predicate makes
// the flag land only on the exact snapshot that was validated.
func (s *Store) Activate(ctx context.Context, id int64, version string) error {
	v, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed version tag %q: %w", version, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE surveys SET validated = TRUE WHERE id = $1 AND version = $2`, id, v)
	if err != nil {
		return fmt.Errorf("activating survey %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current int64
		err := s.db.GetContext(ctx, &current, `SELECT version FROM surveys WHERE id = $1`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return flow.ErrSurveyNotFound
		}
		if err != nil {
			return err
		}
		return &flow.StaleVersionError{Captured: version, Current: strconv.FormatInt(current, 10)}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// pgError unwraps driver errors into something readable in logs.
func pgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s)", pqErr.Message, pqErr.Code)
	}
	return err
}
