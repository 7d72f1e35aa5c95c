package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	logModel "github.com/VersatileFusion/sangshekkan/models/log"
	"github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormStore is the relational binding of repository.Store.
type GormStore struct {
	db    *gorm.DB
	otps  *gormOTPRepository
	users *gormUserRepository
	logs  *gormLogRepository
}

// OpenPostgres connects to PostgreSQL, migrates the schema and returns the store
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Success("Successfully connected to the database")

	return NewGormStore(db)
}

// GormConfig is shared by the postgres connection and the sqlite test harness.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// newGormLogger reports slow queries and real errors. Lookups that find
// nothing are normal flow here and stay quiet.
func newGormLogger(w gormLogger.Writer) gormLogger.Interface {
	return gormLogger.New(w, gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// NewGormStore wraps an open connection, running migrations and index creation.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(db); err != nil {
		return nil, err
	}

	return &GormStore{
		db:    db,
		otps:  &gormOTPRepository{db: db},
		users: &gormUserRepository{db: db},
		logs:  &gormLogRepository{db: db},
	}, nil
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&user.User{},
		&otp.OTP{},
		&logModel.Log{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// createIndexes creates indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_otp_codes_active ON otp_codes(phone, purpose) WHERE is_used = false").Error; err != nil {
		return fmt.Errorf("failed to create otp active index: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_users_status ON users(status)").Error; err != nil {
		return fmt.Errorf("failed to create user status index: %w", err)
	}
	return nil
}

func (s *GormStore) OTPs() repository.OTPRepository   { return s.otps }
func (s *GormStore) Users() repository.UserRepository { return s.users }
func (s *GormStore) Logs() repository.LogRepository   { return s.logs }

// DB exposes the underlying connection for tooling.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormOTPRepository struct {
	db *gorm.DB
}

func (r *gormOTPRepository) Create(ctx context.Context, rec *otp.OTP) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create otp: %w", err)
	}
	return nil
}

func (r *gormOTPRepository) FindLatestSince(ctx context.Context, phone string, purpose otp.Purpose, since time.Time) (*otp.OTP, error) {
	var rec otp.OTP
	err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ? AND created_at > ?", phone, purpose, since).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, translate(err, "find recent otp")
	}
	return &rec, nil
}

func (r *gormOTPRepository) FindActive(ctx context.Context, phone string, purpose otp.Purpose, code string, now time.Time) (*otp.OTP, error) {
	var rec otp.OTP
	err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ? AND code = ? AND is_used = ? AND expires_at > ?", phone, purpose, code, false, now).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, translate(err, "find active otp")
	}
	return &rec, nil
}

func (r *gormOTPRepository) IncrementAttempts(ctx context.Context, phone string, purpose otp.Purpose, now time.Time) error {
	latest := r.db.Model(&otp.OTP{}).
		Select("id").
		Where("phone = ? AND purpose = ? AND is_used = ? AND expires_at > ?", phone, purpose, false, now).
		Order("created_at DESC").
		Limit(1)

	err := r.db.WithContext(ctx).Model(&otp.OTP{}).
		Where("id = (?)", latest).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

func (r *gormOTPRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&otp.OTP{}).
		Where("id = ? AND is_used = ?", id, false).
		UpdateColumn("is_used", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark otp used: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *gormOTPRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&otp.OTP{}).Error; err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&u).Error; err != nil {
		return nil, translate(err, "find user by phone")
	}
	return &u, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err, "find user by id")
	}
	return &u, nil
}

func (r *gormUserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (r *gormUserRepository) UpdateByID(ctx context.Context, id string, upd repository.UserUpdate, now time.Time) error {
	if upd.Empty() {
		return nil
	}
	fields := map[string]interface{}{"updated_at": now}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.PasswordHash != nil {
		fields["password_hash"] = *upd.PasswordHash
	}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.Grade != nil {
		fields["grade"] = *upd.Grade
	}
	if upd.Field != nil {
		fields["field"] = *upd.Field
	}
	if upd.City != nil {
		fields["city"] = *upd.City
	}
	if upd.LastLogin != nil {
		fields["last_login"] = *upd.LastLogin
	}

	res := r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *gormUserRepository) List(ctx context.Context, role user.Role) ([]user.User, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []user.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

type gormLogRepository struct {
	db *gorm.DB
}

func (r *gormLogRepository) SaveLog(ctx context.Context, entry *logModel.Log) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
