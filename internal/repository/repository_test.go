package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/workflow"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestOrderFindAppliesFilter(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	filter := workflow.And(
		workflow.Eq("sostatus", models.SOStatusApproved),
		workflow.Ne("fulfilling_status", models.FulfillingFulfilled),
	)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "orders" WHERE ("sostatus" = $1 AND "fulfilling_status" <> $2) ORDER BY so_date DESC`)).
		WithArgs(models.SOStatusApproved, models.FulfillingFulfilled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	orders, err := repo.Find(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCount(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE "sostatus" <> $1`)).
		WithArgs(models.SOStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.Count(context.Background(), workflow.NotCancelled())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderGetByIDNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	o, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, o)
}

func TestOrderUpdateFields(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateFields(context.Background(), id, map[string]interface{}{"remarks": "call first"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateFieldsMissingRow(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateFields(context.Background(), uuid.New(), map[string]interface{}{"remarks": "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderUpdateFieldsNothingToDo(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	require.NoError(t, repo.UpdateFields(context.Background(), uuid.New(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDelete(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders" WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTransactionRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewStore(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders" WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("notification failed")
	err := store.Transaction(context.Background(), func(tx repository.Store) error {
		if err := tx.Orders().Delete(context.Background(), id); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberIDs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)
	leader, member := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "users" WHERE assigned_to_leader = $1`)).
		WithArgs(leader).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(member.String()))

	ids, err := repo.TeamMemberIDs(context.Background(), leader)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{member}, ids)
}

func TestNotificationMarkReadScoped(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)
	user := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "is_read"=$1 WHERE (user_id IN ($2) OR assigned_to IN ($3)) AND is_read = $4`)).
		WithArgs(true, user, user, false).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.MarkRead(context.Background(), []uuid.UUID{user})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationClearAll(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "notifications" WHERE 1 = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	n, err := repo.Clear(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestNotificationListNewestFirst(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)
	user := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "notifications" WHERE user_id IN ($1) OR assigned_to IN ($2) ORDER BY timestamp DESC LIMIT`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message", "user_id"}).
			AddRow(uuid.New().String(), "Order PMTO0001 for Acme created by sales", user.String()))

	list, err := repo.List(context.Background(), []uuid.UUID{user}, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, user, *list[0].UserID)
}
