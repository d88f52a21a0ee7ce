package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"placementcell/internal/common"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// sqlState extracts the SQLSTATE from either driver the pool may be opened with.
func sqlState(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// translate maps driver errors onto application error codes.
func translate(err error, entity, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.NewError(common.CodeNotFound, entity+" not found", err)
	}
	code, constraint := sqlState(err)
	switch code {
	case uniqueViolation:
		return common.NewError(common.CodeConflict, conflictMessage(entity, constraint), err)
	case foreignKeyViolation:
		return common.NewError(common.CodeConflict, entity+" is referenced by other records", err)
	}
	return common.NewError(common.CodeInternal, fmt.Sprintf("failed to %s %s", action, entity), err)
}

func conflictMessage(entity, constraint string) string {
	switch constraint {
	case "users_email_key":
		return "email already in use"
	case "students_roll_number_key":
		return "roll number already exists"
	case "students_email_key":
		return "student email already exists"
	case "students_user_id_key":
		return "user is already linked to a student"
	case "companies_name_key":
		return "company name already exists"
	case "departments_code_key":
		return "department code already exists"
	case "applications_job_id_student_id_key":
		return "already applied to this job"
	}
	return entity + " already exists"
}

func expectAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to read affected rows", err)
	}
	if n == 0 {
		return common.NewError(common.CodeNotFound, entity+" not found", nil)
	}
	return nil
}

// where accumulates AND-ed predicates with positional arguments.
type where struct {
	clauses []string
	args    []interface{}
}

// add appends a predicate; each "?" in clause is replaced by the next positional parameter.
func (w *where) add(clause string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT/OFFSET parameters and returns the clause.
func (w *where) page(p common.Page) string {
	w.args = append(w.args, p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

// list builds a paged SELECT. The LIMIT/OFFSET arguments are appended before
// the argument slice is returned.
func (w *where) list(selectFrom, orderBy string, p common.Page) (string, []interface{}) {
	query := selectFrom + w.String() + " ORDER BY " + orderBy
	query += w.page(p)
	return query, w.args
}

func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(query))
	return "%" + escaped + "%"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
