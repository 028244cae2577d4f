package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

type userDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserName    string             `bson:"userName"`
	Email       string             `bson:"email"`
	Phone       string             `bson:"phone,omitempty"`
	Password    string             `bson:"password"`
	Role        int                `bson:"role"`
	FullName    string             `bson:"fullName,omitempty"`
	Address     string             `bson:"address,omitempty"`
	Avatar      string             `bson:"avatar,omitempty"`
	DateOfBirth *time.Time         `bson:"dateOfBirth,omitempty"`
	Status      bool               `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:          d.ID.Hex(),
		UserName:    d.UserName,
		Email:       d.Email,
		Phone:       d.Phone,
		Password:    d.Password,
		Role:        models.Role(d.Role),
		FullName:    d.FullName,
		Address:     d.Address,
		Avatar:      d.Avatar,
		DateOfBirth: d.DateOfBirth,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	ts := now()
	doc := userDoc{
		ID:          primitive.NewObjectID(),
		UserName:    u.UserName,
		Email:       u.Email,
		Phone:       u.Phone,
		Password:    u.Password,
		Role:        int(u.Role),
		FullName:    u.FullName,
		Address:     u.Address,
		Avatar:      u.Avatar,
		DateOfBirth: u.DateOfBirth,
		Status:      u.Status,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if _, err := s.coll(store.Users).InsertOne(ctx, doc); err != nil {
		return translate("create user", err)
	}

	u.ID = doc.ID.Hex()
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return nil
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.coll(store.Users).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(op, err)
	}
	return doc.model(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID("get user", id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, "get user", bson.M{"_id": oid})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "find user", bson.M{"email": email})
}

func (s *Store) UserExists(ctx context.Context, userName, email, phone string) (bool, error) {
	var or bson.A
	if userName != "" {
		or = append(or, bson.M{"userName": userName})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return false, nil
	}

	n, err := s.coll(store.Users).CountDocuments(ctx, bson.M{"$or": or}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.coll(store.Users).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	users := []models.User{}
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, *doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return users, nil
}

func (s *Store) updateUser(ctx context.Context, op, id string, set bson.M) (*models.User, error) {
	oid, err := objectID(op, id)
	if err != nil {
		return nil, err
	}
	set["updatedAt"] = now()

	var doc userDoc
	err = s.coll(store.Users).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate(op, err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*models.User, error) {
	set := bson.M{}
	if patch.UserName != nil {
		set["userName"] = *patch.UserName
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	if patch.FullName != nil {
		set["fullName"] = *patch.FullName
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Avatar != nil {
		set["avatar"] = *patch.Avatar
	}
	if patch.DateOfBirth != nil {
		set["dateOfBirth"] = *patch.DateOfBirth
	}
	if patch.Role != nil {
		set["role"] = int(*patch.Role)
	}
	return s.updateUser(ctx, "update user", id, set)
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status bool) (*models.User, error) {
	return s.updateUser(ctx, "set user status", id, bson.M{"status": status})
}

func (s *Store) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID("delete user", id)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := s.coll(store.Users).FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate("delete user", err)
	}
	return doc.model(), nil
}
