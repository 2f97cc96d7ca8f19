package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/google/uuid"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userID = uuid.MustParse("7d5c2b3e-4f0a-4c1e-9a55-0d5d8f6e2a11")

const (
	selectQ = `(?s)^SELECT\s+id,\s*username,\s*balance,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	lockQ   = `(?s)^SELECT\s+balance\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	debitQ  = `(?s)^UPDATE\s+users\s+SET\s+balance\s*=\s*balance\s*-\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+balance\s*>=\s*\$2\s+RETURNING\s+balance\s*$`
	creditQ = `(?s)^UPDATE\s+users\s+SET\s+balance\s*=\s*balance\s*\+\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+balance\s*$`
)

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectQ).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "balance", "created_at"}).
			AddRow(userID.String(), "alice", int64(2000), created))

	got, err := repo.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != userID || got.UserName != "alice" || got.Balance != 2000 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).WithArgs(userID).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), userID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestLockBalance(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(lockQ).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(500)))

	got, err := repo.LockBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("LockBalance error: %v", err)
	}
	if got != 500 {
		t.Fatalf("unexpected balance: %d", got)
	}
}

func TestLockBalance_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(lockQ).WithArgs(userID).WillReturnError(sql.ErrNoRows)

	_, err := repo.LockBalance(context.Background(), userID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDebit_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(debitQ).WithArgs(userID, int64(1800)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(200)))

	got, err := repo.Debit(context.Background(), userID, 1800)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if got != 200 {
		t.Fatalf("unexpected balance: %d", got)
	}
}

func TestDebit_Insufficient(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(debitQ).WithArgs(userID, int64(5000)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Debit(context.Background(), userID, 5000)
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestDebit_NegativeAmount(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.Debit(context.Background(), userID, -1)
	if !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestDebit_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(debitQ).WithArgs(userID, int64(1)).WillReturnError(errors.New("db down"))

	_, err := repo.Debit(context.Background(), userID, 1)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCredit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(creditQ).WithArgs(userID, int64(300)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(800)))

	got, err := repo.Credit(context.Background(), userID, 300)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if got != 800 {
		t.Fatalf("unexpected balance: %d", got)
	}
}

func TestCredit_UnknownUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(creditQ).WithArgs(userID, int64(300)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Credit(context.Background(), userID, 300)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
