package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/pribylovaa/student-portal/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc — BSON-представление пользователя.
type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Firstname string             `bson:"firstname"`
	Lastname  string             `bson:"lastname"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone,omitempty"`
	Role      string             `bson:"role"`
	IsActive  bool               `bson:"is_active"`

	PreviousEmail  string     `bson:"previous_email,omitempty"`
	EmailChangedAt *time.Time `bson:"email_changed_at,omitempty"`

	PasswordHash      string     `bson:"password_hash"`
	PasswordChangedAt *time.Time `bson:"password_changed_at,omitempty"`

	ResetTokenHash    string     `bson:"password_reset_token,omitempty"`
	ResetTokenExpires *time.Time `bson:"password_reset_expires,omitempty"`

	Student *studentDoc `bson:"student,omitempty"`
	Admin   *adminDoc   `bson:"admin,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type studentDoc struct {
	RegistrationNumber string   `bson:"registration_number,omitempty"`
	Faculty            string   `bson:"faculty,omitempty"`
	Department         string   `bson:"department,omitempty"`
	CourseOption       string   `bson:"course_option,omitempty"`
	Courses            []string `bson:"courses,omitempty"`
	GPA                float64  `bson:"gpa"`
	CGPA               float64  `bson:"cgpa"`
}

type adminDoc struct{}

// toMS приводит время к точности MongoDB DateTime.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func docFromUser(u *models.User) userDoc {
	d := userDoc{
		Firstname:         u.Firstname,
		Lastname:          u.Lastname,
		Email:             u.Email,
		Phone:             u.Phone,
		Role:              u.Role.String(),
		IsActive:          u.IsActive,
		PreviousEmail:     u.PreviousEmail,
		EmailChangedAt:    u.EmailChangedAt,
		PasswordHash:      u.PasswordHash,
		PasswordChangedAt: u.PasswordChangedAt,
		ResetTokenHash:    u.PasswordResetTokenHash,
		ResetTokenExpires: u.PasswordResetTokenExpires,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}

	if p := u.Student; p != nil {
		d.Student = &studentDoc{
			RegistrationNumber: p.RegistrationNumber,
			Faculty:            p.Faculty,
			Department:         p.Department,
			CourseOption:       p.CourseOption,
			Courses:            p.Courses,
			GPA:                p.GPA,
			CGPA:               p.CGPA,
		}
	}
	if u.Admin != nil {
		d.Admin = &adminDoc{}
	}

	return d
}

func (d *userDoc) toModel() *models.User {
	u := &models.User{
		ID:                        d.ID.Hex(),
		Firstname:                 d.Firstname,
		Lastname:                  d.Lastname,
		Email:                     d.Email,
		Phone:                     d.Phone,
		Role:                      models.Role(d.Role),
		IsActive:                  d.IsActive,
		PreviousEmail:             d.PreviousEmail,
		EmailChangedAt:            utcPtr(d.EmailChangedAt),
		PasswordHash:              d.PasswordHash,
		PasswordChangedAt:         utcPtr(d.PasswordChangedAt),
		PasswordResetTokenHash:    d.ResetTokenHash,
		PasswordResetTokenExpires: utcPtr(d.ResetTokenExpires),
		CreatedAt:                 d.CreatedAt.UTC(),
		UpdatedAt:                 d.UpdatedAt.UTC(),
	}

	if p := d.Student; p != nil {
		u.Student = &models.StudentProfile{
			RegistrationNumber: p.RegistrationNumber,
			Faculty:            p.Faculty,
			Department:         p.Department,
			CourseOption:       p.CourseOption,
			Courses:            p.Courses,
			GPA:                p.GPA,
			CGPA:               p.CGPA,
		}
	}
	if d.Admin != nil {
		u.Admin = &models.AdminProfile{}
	}

	return u
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()

	return &v
}

// duplicateErr переводит ошибку уникального индекса в ошибку хранилища.
func duplicateErr(err error) error {
	if !mongodriver.IsDuplicateKeyError(err) {
		return err
	}

	switch msg := err.Error(); {
	case strings.Contains(msg, phoneIndex):
		return storage.ErrPhoneTaken
	default:
		return storage.ErrEmailTaken
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, storage.ErrInvalidID
	}

	return oid, nil
}

// CreateUser сохраняет пользователя. Отметки смены учётных данных при создании не выставляются.
func (m *Mongo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/mongo/CreateUser"

	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := toMS(m.now())
	doc := docFromUser(user)
	doc.ID = primitive.NewObjectID()
	doc.Email = strings.ToLower(strings.TrimSpace(doc.Email))
	doc.EmailChangedAt = nil
	doc.PasswordChangedAt = nil
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, duplicateErr(err))
	}

	return doc.toModel(), nil
}

// UserByID находит пользователя по ID.
func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return m.findOne(ctx, op, bson.D{{Key: "_id", Value: oid}})
}

// UserByEmail находит пользователя по email (email хранится в нижнем регистре).
func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage/mongo/UserByEmail"

	return m.findOne(ctx, op, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

// UserByResetToken находит пользователя по действующему токену сброса.
func (m *Mongo) UserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	const op = "storage/mongo/UserByResetToken"

	if tokenHash == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return m.findOne(ctx, op, resetFilter(tokenHash, now))
}

func (m *Mongo) findOne(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// UpdatePassword выставляет новый хэш пароля и password_changed_at = now - skew.
func (m *Mongo) UpdatePassword(ctx context.Context, id, passwordHash string) (*models.User, error) {
	const op = "storage/mongo/UpdatePassword"

	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := m.now()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "password_changed_at", Value: storage.ChangedAt(now, m.skew)},
		{Key: "updated_at", Value: toMS(now)},
	}}}

	return m.findOneAndUpdate(ctx, op, bson.D{{Key: "_id", Value: oid}}, update)
}

// UpdateEmail меняет email одним обновлением-конвейером: прежнее значение
// переносится в previous_email, email_changed_at = now - skew.
func (m *Mongo) UpdateEmail(ctx context.Context, id, email string) (*models.User, error) {
	const op = "storage/mongo/UpdateEmail"

	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := m.now()
	update := mongodriver.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "previous_email", Value: "$email"},
			{Key: "email", Value: bson.D{{Key: "$literal", Value: strings.ToLower(strings.TrimSpace(email))}}},
			{Key: "email_changed_at", Value: storage.ChangedAt(now, m.skew)},
			{Key: "updated_at", Value: toMS(now)},
		}}},
	}

	return m.findOneAndUpdate(ctx, op, bson.D{{Key: "_id", Value: oid}}, update)
}

// SetResetToken записывает хэш токена сброса и срок его действия.
func (m *Mongo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const op = "storage/mongo/SetResetToken"

	oid, err := objectID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_reset_token", Value: tokenHash},
		{Key: "password_reset_expires", Value: toMS(expiresAt)},
		{Key: "updated_at", Value: toMS(m.now())},
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ResetPassword потребляет токен сброса одним FindOneAndUpdate: фильтр по хэшу и
// сроку действия, в том же обновлении — новый пароль, password_changed_at и
// удаление полей токена. Второй вызов с тем же хэшем не найдёт документ.
func (m *Mongo) ResetPassword(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*models.User, error) {
	const op = "storage/mongo/ResetPassword"

	if tokenHash == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stamp := m.now()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "password_changed_at", Value: storage.ChangedAt(stamp, m.skew)},
			{Key: "updated_at", Value: toMS(stamp)},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "password_reset_token", Value: ""},
			{Key: "password_reset_expires", Value: ""},
		}},
	}

	return m.findOneAndUpdate(ctx, op, resetFilter(tokenHash, now), update)
}

// ClearExpiredResetTokens снимает с пользователей просроченные токены сброса.
func (m *Mongo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage/mongo/ClearExpiredResetTokens"

	res, err := m.users.UpdateMany(ctx,
		bson.D{{Key: "password_reset_expires", Value: bson.D{{Key: "$lte", Value: toMS(now)}}}},
		bson.D{{Key: "$unset", Value: bson.D{
			{Key: "password_reset_token", Value: ""},
			{Key: "password_reset_expires", Value: ""},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.ModifiedCount, nil
}

func resetFilter(tokenHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "password_reset_token", Value: tokenHash},
		{Key: "password_reset_expires", Value: bson.D{{Key: "$gt", Value: toMS(now)}}},
	}
}

func (m *Mongo) findOneAndUpdate(ctx context.Context, op string, filter bson.D, update any) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := m.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, duplicateErr(err))
	}

	return doc.toModel(), nil
}
