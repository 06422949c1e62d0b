package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// sessionEntry is one storage key/value pair persisted by the BunStore.
type sessionEntry struct {
	bun.BaseModel `bun:"table:session_state,alias:ss"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

var _ TokenStore = (*BunStore)(nil)

// BunStore is a TokenStore backed by a SQL table through Bun. It targets
// embedded SQLite but works with any dialect Bun supports.
type BunStore struct {
	db *bun.DB
}

// NewBunStore wraps an existing Bun handle.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// NewBunStoreFromDSN opens an SQLite database at the given DSN and returns a
// store backed by it.
func NewBunStoreFromDSN(ctx context.Context, dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	store := NewBunStore(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Init creates the backing table when it does not exist yet.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Close closes the underlying database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) Save(ctx context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}

	now := time.Now()
	entries := []sessionEntry{
		{Key: StoreKeyLoggedIn, Value: "true", UpdatedAt: now},
		{Key: StoreKeyUser, Value: rawUser, UpdatedAt: now},
		{Key: StoreKeyToken, Value: token, UpdatedAt: now},
	}

	_, err = s.db.NewInsert().
		Model(&entries).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) Load(ctx context.Context) (StoredState, error) {
	var entries []sessionEntry
	err := s.db.NewSelect().
		Model(&entries).
		Where("key IN (?)", bun.In([]string{StoreKeyLoggedIn, StoreKeyUser, StoreKeyToken})).
		Scan(ctx)
	if err != nil {
		return StoredState{}, err
	}

	values := map[string]string{}
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}

	state, stale := decodeStoredState(
		values[StoreKeyLoggedIn],
		values[StoreKeyUser],
		values[StoreKeyToken],
	)
	if stale {
		if err := s.Clear(ctx); err != nil {
			return StoredState{}, err
		}
	}

	return state, nil
}

func (s *BunStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*sessionEntry)(nil)).
		Where("key IN (?)", bun.In([]string{StoreKeyLoggedIn, StoreKeyUser, StoreKeyToken})).
		Exec(ctx)
	return err
}
