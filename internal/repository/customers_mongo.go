package repository

import (
	"context"
	"errors"

	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCustomersRepository stores each customer as one document keyed by a ULID.
type MongoCustomersRepository struct {
	coll *mongo.Collection
}

func NewMongoCustomersRepository(db *mongo.Database, collection string) *MongoCustomersRepository {
	if collection == "" {
		collection = "customers"
	}
	return &MongoCustomersRepository{coll: db.Collection(collection)}
}

var _ CustomersRepository = (*MongoCustomersRepository)(nil)

func (r *MongoCustomersRepository) Create(ctx context.Context, c *model.Customer) error {
	doc := *c
	doc.ID = util.NewID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	c.ID = doc.ID
	return nil
}

func (r *MongoCustomersRepository) Get(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MongoCustomersRepository) Update(ctx context.Context, c *model.Customer) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCustomersRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCustomersRepository) List(ctx context.Context, f model.Filter) ([]model.Customer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, mongoSelector(f), opts)
	if err != nil {
		return nil, err
	}
	out := []model.Customer{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoCustomersRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates one ascending index per queryable field.
func (r *MongoCustomersRepository) EnsureIndexes(ctx context.Context) ([]string, error) {
	models := make([]mongo.IndexModel, 0, len(queryableFields))
	for _, field := range queryableFields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetName(field + "_asc"),
		})
	}
	return r.coll.Indexes().CreateMany(ctx, models)
}

var queryableFields = []string{
	"email", "firstname", "lastname", "subscribed",
	"address.address1", "address.address2", "address.city",
	"address.province", "address.country", "address.zip",
}

func mongoSelector(f model.Filter) bson.D {
	sel := bson.D{}
	for _, c := range f.Conditions() {
		key := c.Field
		if c.InAddress {
			key = "address." + key
		}
		sel = append(sel, bson.E{Key: key, Value: c.Value})
	}
	return sel
}
