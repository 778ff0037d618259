package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const fullTextExpr = "to_tsvector('english', title || ' ' || description)"

// PostgresItemRepository stores items as single rows; matches, comments and
// images are jsonb columns so the row is the transactional boundary.
type PostgresItemRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewPostgresItemRepository(db *gorm.DB, timeout time.Duration) *PostgresItemRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresItemRepository{db: db, timeout: timeout}
}

// Migrate creates the table, its column indexes and the full-text index.
func (r *PostgresItemRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.LostItem{}); err != nil {
		return fmt.Errorf("failed to migrate lost_items: %w", err)
	}
	return r.db.Exec("CREATE INDEX IF NOT EXISTS idx_lost_items_fulltext ON lost_items USING gin (" + fullTextExpr + ")").Error
}

func (r *PostgresItemRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

func (r *PostgresItemRepository) Create(ctx context.Context, item *models.LostItem) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	if err := db.Create(item).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (r *PostgresItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.LostItem, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var item models.LostItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (r *PostgresItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	result := db.Delete(&models.LostItem{}, "id = ?", id)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresItemRepository) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.LostItem, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var item models.LostItem
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&item); err != nil {
			if errors.Is(err, ErrNoChange) {
				return nil
			}
			return err
		}
		return tx.Save(&item).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (r *PostgresItemRepository) IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) error {
	column, err := counterColumn(counter)
	if err != nil {
		return err
	}

	db, cancel := r.conn(ctx)
	defer cancel()

	result := db.Model(&models.LostItem{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresItemRepository) FindCandidatePool(ctx context.Context, itemType models.ItemType, category string, exclude uuid.UUID, limit int) ([]models.LostItem, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var items []models.LostItem
	err := db.Where("type = ? AND category = ? AND status = ? AND id <> ?", itemType, category, models.StatusActive, exclude).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (r *PostgresItemRepository) Search(ctx context.Context, q SearchQuery) ([]models.LostItem, int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	query := db.Model(&models.LostItem{}).Scopes(withFilter(q.Filter))
	if q.Text != "" {
		query = query.Where(fullTextExpr+" @@ plainto_tsquery('english', ?)", q.Text)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	ordered := query.Order("created_at DESC")
	if q.Text != "" {
		ordered = query.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "ts_rank(" + fullTextExpr + ", plainto_tsquery('english', ?)) DESC, created_at DESC",
			Vars:               []interface{}{q.Text},
			WithoutParentheses: true,
		}})
	}

	var items []models.LostItem
	if err := ordered.Limit(q.Limit).Offset(q.Offset).Find(&items).Error; err != nil {
		return nil, 0, classify(err)
	}
	return items, total, nil
}

func (r *PostgresItemRepository) Recent(ctx context.Context, itemType models.ItemType, limit int) ([]models.LostItem, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	query := db.Where("status = ?", models.StatusActive)
	if itemType != "" {
		query = query.Where("type = ?", itemType)
	}

	var items []models.LostItem
	if err := query.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (r *PostgresItemRepository) Stats(ctx context.Context) (*ItemStats, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var counts struct {
		Total, Lost, Found, Active, Matched, Resolved, Expired int64
	}
	err := db.Model(&models.LostItem{}).Select(`COUNT(*) AS total,
		COUNT(*) FILTER (WHERE type = 'lost') AS lost,
		COUNT(*) FILTER (WHERE type = 'found') AS found,
		COUNT(*) FILTER (WHERE status = 'active') AS active,
		COUNT(*) FILTER (WHERE status = 'matched') AS matched,
		COUNT(*) FILTER (WHERE status = 'resolved') AS resolved,
		COUNT(*) FILTER (WHERE status = 'expired') AS expired`).
		Scan(&counts).Error
	if err != nil {
		return nil, classify(err)
	}

	var categories []CategoryCount
	err = db.Model(&models.LostItem{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC, category ASC").
		Scan(&categories).Error
	if err != nil {
		return nil, classify(err)
	}
	if categories == nil {
		categories = []CategoryCount{}
	}
	return &ItemStats{
		Total:             counts.Total,
		Lost:              counts.Lost,
		Found:             counts.Found,
		Active:            counts.Active,
		Matched:           counts.Matched,
		Resolved:          counts.Resolved,
		Expired:           counts.Expired,
		CategoryBreakdown: categories,
	}, nil
}

func (r *PostgresItemRepository) ExpireActiveBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	result := db.Model(&models.LostItem{}).
		Where("status = ? AND created_at < ?", models.StatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":     models.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}

func withFilter(f ItemFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Type != "" {
			db = db.Where("type = ?", f.Type)
		}
		if f.Category != "" {
			db = db.Where("category = ?", f.Category)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.ReportedBy != nil {
			db = db.Where("reported_by = ?", *f.ReportedBy)
		}
		if f.Tag != "" {
			db = db.Where("? = ANY(tags)", f.Tag)
		}
		return db
	}
}

func counterColumn(c Counter) (string, error) {
	switch c {
	case CounterViews, CounterContacts, CounterShares:
		return "analytics_" + string(c), nil
	}
	return "", fmt.Errorf("unknown counter %q", c)
}

// classify maps driver failures onto the repository error vocabulary.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
