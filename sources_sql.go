package leaf

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// templateRow is the gorm model backing SQLSourceSet, grounded on the
// User/Task row shape in btouchard-gmx's examples/main.go.
type templateRow struct {
	Name      string `gorm:"primaryKey"`
	Body      string
	UpdatedAt time.Time
}

func (templateRow) TableName() string { return "templates" }

// SQLSourceSet resolves template names against a "templates" table via
// gorm, grounded on btouchard-gmx's gorm.Open(sqlite.Open(...))/Find call
// shape (examples/main.go).
type SQLSourceSet struct {
	db *gorm.DB
}

// NewSQLSourceSet opens (and migrates) a sqlite-backed template store at
// dsn, e.g. "file:templates.db?cache=shared".
func NewSQLSourceSet(dsn string) (*SQLSourceSet, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, sourceIOError(dsn, err)
	}
	if err := db.AutoMigrate(&templateRow{}); err != nil {
		return nil, sourceIOError(dsn, err)
	}
	return &SQLSourceSet{db: db}, nil
}

func (s *SQLSourceSet) Find(ctx context.Context, key string) (string, []byte, error) {
	var row templateRow
	tx := s.db.WithContext(ctx).Where("name = ?", key).First(&row)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return "", nil, sourceNotFound(key)
		}
		return "", nil, sourceIOError(key, tx.Error)
	}
	return "sql:" + row.Name, []byte(row.Body), nil
}

// Put inserts or replaces the stored body for name, used by hosts seeding
// or updating the template table outside of a render.
func (s *SQLSourceSet) Put(ctx context.Context, name, body string) error {
	row := templateRow{Name: name, Body: body, UpdatedAt: time.Now()}
	tx := s.db.WithContext(ctx).Save(&row)
	if tx.Error != nil {
		return sourceIOError(name, tx.Error)
	}
	return nil
}
