package repository

import (
	"context"
	"regexp"
	"time"

	"staffdesk/internal/dto"
	"staffdesk/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type employeeDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Age          float64   `bson:"age"`
	Class        string    `bson:"class"`
	Subject      string    `bson:"subject"`
	Attendance   string    `bson:"attendance"`
	Email        *string   `bson:"email,omitempty"`
	PasswordHash *string   `bson:"passwordHash,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d employeeDoc) model() (*model.Employee, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &model.Employee{
		ID:           id,
		Name:         d.Name,
		Age:          d.Age,
		Class:        d.Class,
		Subject:      d.Subject,
		Attendance:   d.Attendance,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type mongoEmployeeRepo struct{ coll *mongo.Collection }

func NewMongoEmployeeRepository(db *mongo.Database) EmployeeRepository {
	return &mongoEmployeeRepo{coll: db.Collection(EmployeesCollection)}
}

func (r *mongoEmployeeRepo) Create(ctx context.Context, e *model.Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := mongoNow()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, employeeDoc{
		ID:           e.ID.String(),
		Name:         e.Name,
		Age:          e.Age,
		Class:        e.Class,
		Subject:      e.Subject,
		Attendance:   e.Attendance,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	})
	return translateMongo(err)
}

func (r *mongoEmployeeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoEmployeeRepo) FindByEmail(ctx context.Context, email string) (*model.Employee, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoEmployeeRepo) List(ctx context.Context, q dto.EmployeeQuery) ([]model.Employee, int64, error) {
	filter := bson.M{}
	if q.Name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Name), Options: "i"}
	}
	if q.Class != "" {
		filter["class"] = q.Class
	}
	if q.Subject != "" {
		filter["subject"] = q.Subject
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dir := 1
	if q.Desc {
		dir = -1
	}
	sortField := q.SortBy
	if employeeColumn(sortField) == "" {
		sortField = dto.SortByCreatedAt
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var docs []employeeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	employees := make([]model.Employee, 0, len(docs))
	for _, d := range docs {
		e, err := d.model()
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, *e)
	}
	return employees, total, nil
}

func (r *mongoEmployeeRepo) Update(ctx context.Context, id uuid.UUID, ch EmployeeChanges) (*model.Employee, error) {
	set := ch.fields(func(f string) string { return f })
	set["updatedAt"] = mongoNow()

	var d employeeDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, translateMongo(err)
	}
	return d.model()
}

func (r *mongoEmployeeRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	var d employeeDoc
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return nil, translateMongo(err)
	}
	return d.model()
}

func (r *mongoEmployeeRepo) findOne(ctx context.Context, filter bson.M) (*model.Employee, error) {
	var d employeeDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translateMongo(err)
	}
	return d.model()
}
