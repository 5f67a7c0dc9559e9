package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/order"

	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

const (
	kvOrders    = "orders"
	kvProducts  = "products"
	kvCustomers = "customers"
	kvLocations = "locations"
	kvMutations = "mutations"
	kvSeqFile   = "seq.json"
	kvTmpSuffix = ".tmp"
)

// KVStore хранит один JSON документ на ключ.
// Запись атомарна за счет временного файла и переименования.
type KVStore struct {
	fs   afero.Fs
	root string
	log  *slog.Logger

	mu      sync.RWMutex
	nextSeq int64
}

func NewKVStore(fs afero.Fs, root string, log *slog.Logger) (*KVStore, error) {
	s := &KVStore{
		fs:   fs,
		root: root,
		log:  log.With("component", "kv_store"),
	}

	for _, dir := range []string{kvOrders, kvProducts, kvCustomers, kvLocations, kvMutations} {
		if err := fs.MkdirAll(path.Join(root, dir), 0700); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
		}
	}

	if err := s.loadSeq(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *KVStore) Backend() string {
	return BackendKV
}

func (s *KVStore) Close() error {
	return nil
}

func (s *KVStore) InsertOrder(_ context.Context, o *order.LocalOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.file(kvOrders, o.LocalID))
	if err != nil {
		return fmt.Errorf("ошибка проверки существования заказа: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: order %s", ErrConflict, o.LocalID)
	}
	return s.put(kvOrders, o.LocalID, o)
}

func (s *KVStore) UpdateOrderStatus(_ context.Context, localID string, status order.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var o order.LocalOrder
	if err := s.get(kvOrders, localID, &o); err != nil {
		return err
	}
	o.Status = status
	o.UpdatedAt = at
	return s.put(kvOrders, localID, &o)
}

func (s *KVStore) GetOrder(_ context.Context, localID string) (*order.LocalOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o order.LocalOrder
	if err := s.get(kvOrders, localID, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *KVStore) ListOrders(_ context.Context) ([]order.LocalOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders, err := listAll[order.LocalOrder](s, kvOrders)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].LocalID < orders[j].LocalID
	})
	return orders, nil
}

func (s *KVStore) ListUnsyncedOrders(_ context.Context) ([]order.LocalOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := listAll[order.LocalOrder](s, kvOrders)
	if err != nil {
		return nil, err
	}
	orders := make([]order.LocalOrder, 0, len(all))
	for _, o := range all {
		if !o.Synced {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].LocalID < orders[j].LocalID
	})
	return orders, nil
}

func (s *KVStore) MarkOrderSynced(_ context.Context, localID string, serverID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var o order.LocalOrder
	if err := s.get(kvOrders, localID, &o); err != nil {
		return err
	}
	if o.Synced {
		return ErrAlreadySynced
	}
	o.ServerID = &serverID
	o.Synced = true
	o.SyncedAt = &at
	o.UpdatedAt = at
	return s.put(kvOrders, localID, &o)
}

func (s *KVStore) UpsertProducts(_ context.Context, products []catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if err := s.put(kvProducts, strconv.FormatInt(p.ID, 10), p); err != nil {
			return err
		}
	}
	return nil
}

func (s *KVStore) ListProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products, err := listAll[catalog.Product](s, kvProducts)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (s *KVStore) UpsertCustomers(_ context.Context, customers []catalog.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range customers {
		if err := s.put(kvCustomers, strconv.FormatInt(c.ID, 10), c); err != nil {
			return err
		}
	}
	return nil
}

func (s *KVStore) ListCustomers(_ context.Context) ([]catalog.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers, err := listAll[catalog.Customer](s, kvCustomers)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(customers, func(i, j int) bool {
		if customers[i].Name != customers[j].Name {
			return customers[i].Name < customers[j].Name
		}
		return customers[i].ID < customers[j].ID
	})
	return customers, nil
}

func (s *KVStore) InsertLocation(_ context.Context, l location.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.file(kvLocations, l.ID))
	if err != nil {
		return fmt.Errorf("ошибка проверки существования геопозиции: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: location %s", ErrConflict, l.ID)
	}
	return s.put(kvLocations, l.ID, l)
}

func (s *KVStore) ListUnsyncedLocations(_ context.Context, limit int) ([]location.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := listAll[location.Sample](s, kvLocations)
	if err != nil {
		return nil, err
	}
	samples := make([]location.Sample, 0, len(all))
	for _, l := range all {
		if !l.Synced {
			samples = append(samples, l)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].Timestamp.Equal(samples[j].Timestamp) {
			return samples[i].Timestamp.Before(samples[j].Timestamp)
		}
		return samples[i].ID < samples[j].ID
	})
	if limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}
	return samples, nil
}

func (s *KVStore) MarkLocationSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l location.Sample
	if err := s.get(kvLocations, id, &l); err != nil {
		return err
	}
	l.Synced = true
	return s.put(kvLocations, id, l)
}

func (s *KVStore) EnqueueMutation(_ context.Context, m *mutation.Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.file(kvMutations, m.ID))
	if err != nil {
		return fmt.Errorf("ошибка проверки очереди: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: mutation %s", ErrConflict, m.ID)
	}

	seq := s.nextSeq
	if err := s.saveSeq(seq + 1); err != nil {
		return err
	}
	s.nextSeq = seq + 1

	stored := *m
	stored.Seq = seq
	if err := s.put(kvMutations, m.ID, stored); err != nil {
		return err
	}
	m.Seq = seq
	return nil
}

// restoreMutation переносит элемент очереди с сохранением его Seq
func (s *KVStore) restoreMutation(m mutation.Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Seq >= s.nextSeq {
		if err := s.saveSeq(m.Seq + 1); err != nil {
			return err
		}
		s.nextSeq = m.Seq + 1
	}
	return s.put(kvMutations, m.ID, m)
}

// upsertOrder перезаписывает заказ целиком, без проверки существования
func (s *KVStore) upsertOrder(o order.LocalOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(kvOrders, o.LocalID, o)
}

func (s *KVStore) upsertLocation(l location.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(kvLocations, l.ID, l)
}

func (s *KVStore) ListMutations(_ context.Context) ([]mutation.Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := listAll[mutation.Pending](s, kvMutations)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (s *KVStore) UpdateMutation(_ context.Context, m *mutation.Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored mutation.Pending
	if err := s.get(kvMutations, m.ID, &stored); err != nil {
		return err
	}
	stored.Attempts = m.Attempts
	stored.LastError = m.LastError
	stored.LastAttemptAt = m.LastAttemptAt
	stored.Dead = m.Dead
	return s.put(kvMutations, m.ID, stored)
}

func (s *KVStore) RemoveMutation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(s.file(kvMutations, id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из очереди: %w", err)
	}
	return nil
}

func (s *KVStore) file(collection, key string) string {
	return path.Join(s.root, collection, url.PathEscape(key)+".json")
}

func (s *KVStore) put(collection, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s/%s: %w", collection, key, err)
	}
	return s.writeAtomic(s.file(collection, key), data)
}

func (s *KVStore) writeAtomic(name string, data []byte) error {
	tmp := name + kvTmpSuffix
	if err := afero.WriteFile(s.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("ошибка переименования %s: %w", name, err)
	}
	return nil
}

func (s *KVStore) get(collection, key string, v any) error {
	data, err := afero.ReadFile(s.fs, s.file(collection, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка разбора %s/%s: %w", collection, key, err)
	}
	return nil
}

func listAll[T any](s *KVStore, collection string) ([]T, error) {
	dir := path.Join(s.root, collection)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", collection, err)
	}

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := afero.ReadFile(s.fs, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения %s/%s: %w", collection, e.Name(), err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			s.log.Warn("Поврежденная запись пропущена", "collection", collection, "file", e.Name(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

type seqState struct {
	Next int64 `json:"next"`
}

func (s *KVStore) loadSeq() error {
	s.nextSeq = 1

	data, err := afero.ReadFile(s.fs, path.Join(s.root, kvSeqFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка чтения счетчика очереди: %w", err)
	}
	if err == nil {
		var st seqState
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("ошибка разбора счетчика очереди: %w", err)
		}
		if st.Next > s.nextSeq {
			s.nextSeq = st.Next
		}
	}

	// Счетчик мог отстать, если процесс упал между записями
	list, err := listAll[mutation.Pending](s, kvMutations)
	if err != nil {
		return err
	}
	for _, m := range list {
		if m.Seq >= s.nextSeq {
			s.nextSeq = m.Seq + 1
		}
	}
	return nil
}

func (s *KVStore) saveSeq(next int64) error {
	data, err := json.Marshal(seqState{Next: next})
	if err != nil {
		return fmt.Errorf("ошибка сериализации счетчика очереди: %w", err)
	}
	return s.writeAtomic(path.Join(s.root, kvSeqFile), data)
}
