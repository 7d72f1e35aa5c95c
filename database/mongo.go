package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	logModel "github.com/VersatileFusion/sangshekkan/models/log"
	"github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	otpCollection   = "otpCodes"
	logsCollection  = "logs"
)

// MongoStore is the document binding of repository.Store.
type MongoStore struct {
	client *mongo.Client
	otps   *mongoOTPRepository
	users  *mongoUserRepository
	logs   *mongoLogRepository
}

// OpenMongo connects, pings and prepares indexes.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	logger.Success("Successfully connected to MongoDB database " + dbName)

	db := client.Database(dbName)
	if err := ensureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		client: client,
		otps:   &mongoOTPRepository{col: db.Collection(otpCollection)},
		users:  &mongoUserRepository{col: db.Collection(usersCollection)},
		logs:   &mongoLogRepository{col: db.Collection(logsCollection)},
	}, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users phone index: %w", err)
	}
	if _, err := db.Collection(otpCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}, {Key: "purpose", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create otp lookup index: %w", err)
	}
	if _, err := db.Collection(logsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create logs index: %w", err)
	}
	return nil
}

func (s *MongoStore) OTPs() repository.OTPRepository   { return s.otps }
func (s *MongoStore) Users() repository.UserRepository { return s.users }
func (s *MongoStore) Logs() repository.LogRepository   { return s.logs }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

type mongoOTPRepository struct {
	col *mongo.Collection
}

func activeFilter(phone string, purpose otp.Purpose, now time.Time) bson.M {
	return bson.M{
		"phone":     phone,
		"purpose":   purpose,
		"isUsed":    false,
		"expiresAt": bson.M{"$gt": now},
	}
}

func (r *mongoOTPRepository) Create(ctx context.Context, rec *otp.OTP) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("create otp: %w", err)
	}
	return nil
}

func (r *mongoOTPRepository) FindLatestSince(ctx context.Context, phone string, purpose otp.Purpose, since time.Time) (*otp.OTP, error) {
	filter := bson.M{"phone": phone, "purpose": purpose, "createdAt": bson.M{"$gt": since}}
	return r.findOne(ctx, filter, "find recent otp")
}

func (r *mongoOTPRepository) FindActive(ctx context.Context, phone string, purpose otp.Purpose, code string, now time.Time) (*otp.OTP, error) {
	filter := activeFilter(phone, purpose, now)
	filter["code"] = code
	return r.findOne(ctx, filter, "find active otp")
}

func (r *mongoOTPRepository) findOne(ctx context.Context, filter bson.M, op string) (*otp.OTP, error) {
	var rec otp.OTP
	err := r.col.FindOne(ctx, filter, options.FindOne().SetSort(newestFirst)).Decode(&rec)
	if err != nil {
		return nil, translateMongo(err, op)
	}
	return &rec, nil
}

func (r *mongoOTPRepository) IncrementAttempts(ctx context.Context, phone string, purpose otp.Purpose, now time.Time) error {
	err := r.col.FindOneAndUpdate(ctx,
		activeFilter(phone, purpose, now),
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetSort(newestFirst),
	).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

func (r *mongoOTPRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "isUsed": false},
		bson.M{"$set": bson.M{"isUsed": true}},
	)
	if err != nil {
		return false, fmt.Errorf("mark otp used: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoOTPRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

type mongoUserRepository struct {
	col *mongo.Collection
}

func (r *mongoUserRepository) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone}, "find user by phone")
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "find user by id")
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, op string) (*user.User, error) {
	var u user.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translateMongo(err, op)
	}
	return &u, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return translateMongo(err, "create user")
	}
	return nil
}

func (r *mongoUserRepository) UpdateByID(ctx context.Context, id string, upd repository.UserUpdate, now time.Time) error {
	if upd.Empty() {
		return nil
	}
	set := bson.M{"updatedAt": now}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Grade != nil {
		set["grade"] = *upd.Grade
	}
	if upd.Field != nil {
		set["field"] = *upd.Field
	}
	if upd.City != nil {
		set["city"] = *upd.City
	}
	if upd.LastLogin != nil {
		set["lastLogin"] = *upd.LastLogin
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) List(ctx context.Context, role user.Role) ([]user.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := []user.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

type mongoLogRepository struct {
	col *mongo.Collection
}

func (r *mongoLogRepository) SaveLog(ctx context.Context, entry *logModel.Log) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func translateMongo(err error, op string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
