package repository

import (
	"context"
	"time"

	"staffdesk/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name,omitempty"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newAccountDoc(a *model.Account) accountDoc {
	return accountDoc{
		ID:           a.ID.String(),
		Name:         a.Name,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (d accountDoc) model() (*model.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &model.Account{
		ID:           id,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         model.Role(d.Role),
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type mongoAccountRepo struct{ coll *mongo.Collection }

func NewMongoAccountRepository(db *mongo.Database) AccountRepository {
	return &mongoAccountRepo{coll: db.Collection(AccountsCollection)}
}

func (r *mongoAccountRepo) Create(ctx context.Context, a *model.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := mongoNow()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, newAccountDoc(a))
	return translateMongo(err)
}

func (r *mongoAccountRepo) Update(ctx context.Context, a *model.Account) error {
	a.UpdatedAt = mongoNow()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": a.ID.String()}, newAccountDoc(a))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoAccountRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}})
}

func (r *mongoAccountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *mongoAccountRepo) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	var d accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translateMongo(err)
	}
	return d.model()
}
