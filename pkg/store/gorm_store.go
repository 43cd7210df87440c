package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"akelarre/pkg/domain"
)

const migrateLockID int64 = 62896289

// MaxNameLength bounds the display name accepted at login.
const MaxNameLength = 64

// recordParams is the JSON shape stored in the params column.
type recordParams struct {
	Style    domain.StyleConfig    `json:"style"`
	Sampling domain.SamplingParams `json:"sampling"`
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent replicas do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &GenerationRecordModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrateLockID).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		return fn(tx)
	})
}

// GetOrCreateUserByName resolves a display name to its stable user, creating
// the user with a fresh uuid on first sight. The name carries the identity,
// exactly once, for the lifetime of the system.
func (s *GormStore) GetOrCreateUserByName(name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, errors.New("name required")
	}
	if len(name) > MaxNameLength {
		return domain.User{}, fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}

	var model UserModel
	err := s.db.Where("name = ?", name).First(&model).Error
	if err == nil {
		return userFromModel(model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	model = UserModel{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	// A concurrent login with the same name may insert first; the unique
	// index makes exactly one insert win and the loser re-reads.
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.db.Where("name = ?", name).First(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	return userFromModel(model), nil
}

// GetUserByID fetches a user by id.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns the total number of registered users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveRecord persists one generation record. Records are never updated.
func (s *GormStore) SaveRecord(rec domain.GenerationRecord) error {
	params, err := json.Marshal(recordParams{Style: rec.Style, Sampling: rec.Sampling})
	if err != nil {
		return fmt.Errorf("marshal record params: %w", err)
	}
	model := GenerationRecordModel{
		ID:          rec.ID,
		UserID:      rec.UserID,
		UserPrompt:  rec.UserPrompt,
		FinalPrompt: rec.FinalPrompt,
		StorageKey:  rec.StorageKey,
		IsModified:  rec.IsModified,
		Params:      datatypes.JSON(params),
		CreatedAt:   rec.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// ListRecordsByUser returns the newest records first.
func (s *GormStore) ListRecordsByUser(userID string, limit int) ([]domain.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []GenerationRecordModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]domain.GenerationRecord, 0, len(models))
	for _, m := range models {
		records = append(records, recordFromModel(m))
	}
	return records, nil
}

// RecordCount returns the total number of generations ever persisted.
func (s *GormStore) RecordCount() (int, error) {
	var count int64
	if err := s.db.Model(&GenerationRecordModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

func recordFromModel(m GenerationRecordModel) domain.GenerationRecord {
	rec := domain.GenerationRecord{
		ID:          m.ID,
		UserID:      m.UserID,
		UserPrompt:  m.UserPrompt,
		FinalPrompt: m.FinalPrompt,
		StorageKey:  m.StorageKey,
		IsModified:  m.IsModified,
		CreatedAt:   m.CreatedAt,
	}
	var params recordParams
	if len(m.Params) > 0 {
		if err := json.Unmarshal(m.Params, &params); err == nil {
			rec.Style = params.Style
			rec.Sampling = params.Sampling
		}
	}
	return rec
}
