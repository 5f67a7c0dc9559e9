package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/order"
	"fieldsync/internal/infrastructure/migration"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории базы данных: %w", err)
	}

	mg := migration.NewMigration(migrationsFS, "migrations", "sqlite3://"+path, nil)
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции базы данных: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// Одно соединение: все записи идут последовательно
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		log: log.With("component", "sqlite_store"),
	}, nil
}

func (s *SQLiteStore) Backend() string {
	return BackendSQLite
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertOrder(ctx context.Context, o *order.LocalOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (local_id, server_id, customer_id, customer_name, status, total_amount,
		                    notes, created_at, updated_at, synced, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.LocalID, nullInt64(o.ServerID), o.CustomerID, o.CustomerName, string(o.Status), o.TotalAmount,
		o.Notes, o.CreatedAt.UnixNano(), o.UpdatedAt.UnixNano(), o.Synced, nullTime(o.SyncedAt))
	if err != nil {
		return fmt.Errorf("ошибка сохранения заказа: %w", classify(err))
	}

	for i, it := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_local_id, position, product_id, product_name, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, o.LocalID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal)
		if err != nil {
			return fmt.Errorf("ошибка сохранения позиции заказа: %w", classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, localID string, status order.Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE local_id = ?",
		string(status), at.UnixNano(), localID)
	if err != nil {
		return fmt.Errorf("ошибка обновления заказа: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка обновления заказа: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const orderColumns = `local_id, server_id, customer_id, customer_name, status, total_amount,
	notes, created_at, updated_at, synced, synced_at`

func (s *SQLiteStore) GetOrder(ctx context.Context, localID string) (*order.LocalOrder, error) {
	orders, err := s.queryOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE local_id = ?", localID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context) ([]order.LocalOrder, error) {
	return s.queryOrders(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, local_id")
}

func (s *SQLiteStore) ListUnsyncedOrders(ctx context.Context) ([]order.LocalOrder, error) {
	return s.queryOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE synced = 0 ORDER BY created_at, local_id")
}

func (s *SQLiteStore) MarkOrderSynced(ctx context.Context, localID string, serverID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET server_id = ?, synced = 1, synced_at = ?, updated_at = ?
		WHERE local_id = ? AND synced = 0
	`, serverID, at.UnixNano(), at.UnixNano(), localID)
	if err != nil {
		return fmt.Errorf("ошибка отметки синхронизации заказа: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка отметки синхронизации заказа: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE local_id = ?)", localID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ошибка проверки существования заказа: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadySynced
}

func (s *SQLiteStore) queryOrders(ctx context.Context, query string, args ...any) ([]order.LocalOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	orders := []order.LocalOrder{}
	index := map[string]int{}
	for rows.Next() {
		var (
			o                    order.LocalOrder
			serverID, syncedAt   sql.NullInt64
			status               string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&o.LocalID, &serverID, &o.CustomerID, &o.CustomerName, &status, &o.TotalAmount,
			&o.Notes, &createdAt, &updatedAt, &o.Synced, &syncedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		o.Status = order.Status(status)
		o.CreatedAt = fromNanos(createdAt)
		o.UpdatedAt = fromNanos(updatedAt)
		if serverID.Valid {
			id := serverID.Int64
			o.ServerID = &id
		}
		if syncedAt.Valid {
			t := fromNanos(syncedAt.Int64)
			o.SyncedAt = &t
		}
		o.Items = []order.Item{}
		index[o.LocalID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения заказов: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.LocalID)
	}
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT order_local_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_local_id IN (`+placeholders(len(ids))+`)
		ORDER BY order_local_id, position
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения позиций заказа: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			localID string
			it      order.Item
		)
		if err := itemRows.Scan(&localID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции заказа: %w", err)
		}
		if i, ok := index[localID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения позиций заказа: %w", err)
	}

	return orders, nil
}

func (s *SQLiteStore) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, sku, category, price, stock, unit, active, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, sku = excluded.sku, category = excluded.category,
			price = excluded.price, stock = excluded.stock, unit = excluded.unit,
			active = excluded.active, last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.SKU, p.Category, p.Price, p.Stock, p.Unit,
			p.Active, p.LastUpdated.UnixNano()); err != nil {
			return fmt.Errorf("ошибка сохранения товара %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, category, price, stock, unit, active, last_updated
		FROM products ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товаров: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		var (
			p       catalog.Product
			updated int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.Stock, &p.Unit, &p.Active, &updated); err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		p.LastUpdated = fromNanos(updated)
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLiteStore) UpsertCustomers(ctx context.Context, customers []catalog.Customer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, phone = excluded.phone, email = excluded.email,
			address = excluded.address, last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Phone, c.Email, c.Address, c.LastUpdated.UnixNano()); err != nil {
			return fmt.Errorf("ошибка сохранения клиента %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]catalog.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, address, last_updated FROM customers ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения клиентов: %w", err)
	}
	defer rows.Close()

	customers := []catalog.Customer{}
	for rows.Next() {
		var (
			c       catalog.Customer
			updated int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &updated); err != nil {
			return nil, fmt.Errorf("ошибка сканирования клиента: %w", err)
		}
		c.LastUpdated = fromNanos(updated)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *SQLiteStore) InsertLocation(ctx context.Context, l location.Sample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, latitude, longitude, accuracy, recorded_at, synced)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID, l.Latitude, l.Longitude, l.Accuracy, l.Timestamp.UnixNano(), l.Synced)
	if err != nil {
		return fmt.Errorf("ошибка сохранения геопозиции: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) ListUnsyncedLocations(ctx context.Context, limit int) ([]location.Sample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, accuracy, recorded_at, synced
		FROM locations WHERE synced = 0
		ORDER BY recorded_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения геопозиций: %w", err)
	}
	defer rows.Close()

	samples := []location.Sample{}
	for rows.Next() {
		var (
			l  location.Sample
			ts int64
		)
		if err := rows.Scan(&l.ID, &l.Latitude, &l.Longitude, &l.Accuracy, &ts, &l.Synced); err != nil {
			return nil, fmt.Errorf("ошибка сканирования геопозиции: %w", err)
		}
		l.Timestamp = fromNanos(ts)
		samples = append(samples, l)
	}
	return samples, rows.Err()
}

func (s *SQLiteStore) MarkLocationSynced(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE locations SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ошибка отметки синхронизации геопозиции: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка отметки синхронизации геопозиции: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) EnqueueMutation(ctx context.Context, m *mutation.Pending) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (id, method, endpoint, payload, enqueued_at, attempts, last_error, last_attempt_at, dead)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Method, m.Endpoint, []byte(m.Payload), m.EnqueuedAt.UnixNano(), m.Attempts, m.LastError,
		nullTime(m.LastAttemptAt), m.Dead)
	if err != nil {
		return fmt.Errorf("ошибка постановки в очередь: %w", classify(err))
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ошибка получения номера в очереди: %w", err)
	}
	m.Seq = seq
	return nil
}

func (s *SQLiteStore) ListMutations(ctx context.Context) ([]mutation.Pending, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, method, endpoint, payload, enqueued_at, attempts, last_error, last_attempt_at, dead
		FROM mutations ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения очереди: %w", err)
	}
	defer rows.Close()

	list := []mutation.Pending{}
	for rows.Next() {
		var (
			m           mutation.Pending
			payload     []byte
			enqueuedAt  int64
			lastAttempt sql.NullInt64
		)
		if err := rows.Scan(&m.Seq, &m.ID, &m.Method, &m.Endpoint, &payload, &enqueuedAt, &m.Attempts,
			&m.LastError, &lastAttempt, &m.Dead); err != nil {
			return nil, fmt.Errorf("ошибка сканирования очереди: %w", err)
		}
		if len(payload) > 0 {
			m.Payload = payload
		}
		m.EnqueuedAt = fromNanos(enqueuedAt)
		if lastAttempt.Valid {
			t := fromNanos(lastAttempt.Int64)
			m.LastAttemptAt = &t
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) UpdateMutation(ctx context.Context, m *mutation.Pending) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE mutations SET attempts = ?, last_error = ?, last_attempt_at = ?, dead = ?
		WHERE id = ?
	`, m.Attempts, m.LastError, nullTime(m.LastAttemptAt), m.Dead, m.ID)
	if err != nil {
		return fmt.Errorf("ошибка обновления очереди: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка обновления очереди: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RemoveMutation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM mutations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ошибка удаления из очереди: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка удаления из очереди: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify превращает нарушение ограничений в доменную ошибку
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
