package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"placementcell/internal/common"
	"placementcell/internal/domain/student"
)

func TestTranslateMapsDriverErrors(t *testing.T) {
	if err := translate(sql.ErrNoRows, "student", "load"); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "students_roll_number_key"}
	err := translate(fmt.Errorf("exec: %w", pgErr), "student", "create")
	if !common.Is(err, common.CodeConflict) || common.AsError(err).Message != "roll number already exists" {
		t.Fatalf("expected roll number conflict, got %v", err)
	}
	pqErr := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	if err := translate(pqErr, "user", "create"); common.AsError(err).Message != "email already in use" {
		t.Fatalf("expected email conflict, got %v", err)
	}
	fkErr := &pgconn.PgError{Code: "23503"}
	if err := translate(fkErr, "company", "delete"); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict for foreign key violation, got %v", err)
	}
	if err := translate(errors.New("connection reset"), "job", "list"); !common.Is(err, common.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if translate(nil, "job", "list") != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestWhereBuilderNumbersParameters(t *testing.T) {
	w := studentWhere(student.Filter{DepartmentID: "d1", BatchYear: 2026, Query: "go"})
	clause := w.String()
	want := " WHERE department_id = $1 AND batch_year = $2 AND (name ILIKE $3 OR roll_number ILIKE $4 OR email ILIKE $5 OR array_to_string(skills, ' ') ILIKE $6 OR resume_text ILIKE $7)"
	if clause != want {
		t.Fatalf("unexpected clause:\n%s\n%s", clause, want)
	}
	if limit := w.page(common.Page{Page: 3, Limit: 10}); limit != " LIMIT $8 OFFSET $9" {
		t.Fatalf("unexpected page clause %q", limit)
	}
	if len(w.args) != 9 || w.args[8] != 20 {
		t.Fatalf("unexpected args %v", w.args)
	}
}

func TestWhereListReturnsPageArguments(t *testing.T) {
	var w where
	w.add("status = ?", "published")
	query, args := w.list(`SELECT id FROM jobs`, `deadline ASC`, common.Page{Page: 2, Limit: 25})
	if query != "SELECT id FROM jobs WHERE status = $1 ORDER BY deadline ASC LIMIT $2 OFFSET $3" {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 3 || args[1] != 25 || args[2] != 25 {
		t.Fatalf("expected limit and offset in args, got %v", args)
	}
}

func TestEmptyWhere(t *testing.T) {
	var w where
	if w.String() != "" {
		t.Fatalf("expected empty clause")
	}
	w.add("read_at IS NULL")
	if w.String() != " WHERE read_at IS NULL" || len(w.args) != 0 {
		t.Fatalf("unexpected clause %q", w.String())
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	if got := likePattern(" 100%_a "); got != `%100\%\_a%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}
