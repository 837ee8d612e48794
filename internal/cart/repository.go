package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// Repository stores registered-user carts. Guest carts are never stored;
// they exist only inside a request.
type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddLine(ctx context.Context, userID string, line domain.CartLine) error
	UpdateLineQuantity(ctx context.Context, userID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID string, inventoryID, packID int64) error
	DeleteCart(ctx context.Context, userID string) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func ConnectMongoDB(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client.Database(dbName), nil
}

// lineKeyFilter matches a stored line by whichever reference it carries.
func lineKeyFilter(inventoryID, packID int64) bson.M {
	if packID != 0 {
		return bson.M{"pack_id": packID}
	}
	return bson.M{"inventory_id": inventoryID}
}

func (m mongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m mongoRepository) AddLine(ctx context.Context, userID string, line domain.CartLine) error {
	now := time.Now()
	filter := bson.M{"user_id": userID}

	var existing domain.Cart
	err := m.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			cart := &domain.Cart{
				UserID:    userID,
				Lines:     []domain.CartLine{line},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := m.collection.InsertOne(ctx, cart); err != nil {
				return fmt.Errorf("failed to create cart with line: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing cart: %w", err)
	}

	// Same reference already in the cart: overwrite its quantity.
	for _, l := range existing.Lines {
		if l.InventoryID == line.InventoryID && l.PackID == line.PackID {
			return m.UpdateLineQuantity(ctx, userID, line)
		}
	}

	update := bson.M{
		"$push": bson.M{"lines": line},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to add line: %w", err)
	}
	return nil
}

func (m mongoRepository) UpdateLineQuantity(ctx context.Context, userID string, line domain.CartLine) error {
	filter := bson.M{"user_id": userID}

	update := bson.M{
		"$set": bson.M{
			"lines.$[elem].quantity": line.Quantity,
			"updated_at":             time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			prefixKeys("elem.", lineKeyFilter(line.InventoryID, line.PackID)),
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m mongoRepository) RemoveLine(ctx context.Context, userID string, inventoryID, packID int64) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{"lines": lineKeyFilter(inventoryID, packID)},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m mongoRepository) DeleteCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

// EnsureIndexes creates the carts collection indexes at startup. Abandoned
// carts expire after 90 days.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func prefixKeys(prefix string, m bson.M) bson.M {
	out := bson.M{}
	for k, v := range m {
		out[prefix+k] = v
	}
	return out
}
