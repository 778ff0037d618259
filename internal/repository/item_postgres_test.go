package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepoWithMock(t *testing.T) (*PostgresItemRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewPostgresItemRepository(db, time.Second), mock
}

func itemRow(id uuid.UUID, status models.ItemStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "category", "type", "location", "status"}).
		AddRow(id.String(), "Umbrella", "accessories", "found", "Library", string(status))
}

func TestPostgres_FindByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "lost_items" WHERE id = \$1`).
		WillReturnRows(itemRow(id, models.StatusActive))

	item, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, models.StatusActive, item.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByIDNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT \* FROM "lost_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_TimeoutIsUnavailable(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT \* FROM "lost_items"`).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgres_DeleteMissing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "lost_items"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MutateLocksRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "lost_items" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(itemRow(id, models.StatusResolved))
	mock.ExpectCommit()

	item, err := repo.Mutate(context.Background(), id, func(it *models.LostItem) error {
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, item.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MutateErrorRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	rejected := errors.New("rejected")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(itemRow(id, models.StatusActive))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), id, func(it *models.LostItem) error {
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_IncrementCounter(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "lost_items" SET "analytics_shares"=analytics_shares \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.IncrementCounter(context.Background(), uuid.New(), CounterShares))
	assert.Error(t, repo.IncrementCounter(context.Background(), uuid.New(), Counter("likes")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ExpireActiveBefore(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "lost_items" SET .*WHERE status = \$\d+ AND created_at < \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	now := time.Now()
	n, err := repo.ExpireActiveBefore(context.Background(), now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "lost", "found", "active", "matched", "resolved", "expired"}).
			AddRow(5, 3, 2, 2, 1, 1, 1))
	mock.ExpectQuery(`SELECT category, COUNT\(\*\) AS count FROM "lost_items" GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("electronics", 3).
			AddRow("keys", 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.Total)
	assert.EqualValues(t, 3, stats.Lost)
	assert.EqualValues(t, 1, stats.Expired)
	assert.Equal(t, []CategoryCount{{"electronics", 3}, {"keys", 2}}, stats.CategoryBreakdown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StatsEmptyTableHasEmptyBreakdown(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "lost", "found", "active", "matched", "resolved", "expired"}).
			AddRow(0, 0, 0, 0, 0, 0, 0))
	mock.ExpectQuery(`SELECT category, COUNT\(\*\) AS count FROM "lost_items" GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.CategoryBreakdown)
	assert.Empty(t, stats.CategoryBreakdown)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"categoryBreakdown":[]`)
}

func TestPostgres_SearchCountsThenPages(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "lost_items" WHERE type = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "lost_items" WHERE type = \$1 ORDER BY created_at DESC LIMIT`).
		WillReturnRows(itemRow(id, models.StatusActive))

	items, total, err := repo.Search(context.Background(), SearchQuery{
		Filter: ItemFilter{Type: models.ItemTypeFound},
		Limit:  20,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
