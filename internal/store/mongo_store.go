package store

import (
	"context"
	"errors"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

// MongoMessageStore keeps messages as documents, one per message.
type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{coll: db.Collection(messagesCollection)}
}

// EnsureIndexes creates the indexes the read paths depend on.
func (s *MongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "senderId", Value: 1}, {Key: "isRead", Value: 1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func mongoErr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Unavailable("message store unavailable", err)
}

func (s *MongoMessageStore) Persist(ctx context.Context, m *models.Message) (string, error) {
	if m.ID == "" {
		m.ID = utils.NewSortableID()
	}
	if m.ConversationID == "" {
		m.ConversationID = models.ConversationID(m.SenderID, m.ReceiverID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.DeliveryState == "" {
		m.DeliveryState = models.StateSent
	}
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		return "", mongoErr(err, "message")
	}
	return m.ID, nil
}

func (s *MongoMessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mongoErr(err, "message")
	}
	return &m, nil
}

func (s *MongoMessageStore) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Message, error) {
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, mongoErr(err, "conversation")
	}
	var out []models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err, "conversation")
	}
	return out, nil
}

func (s *MongoMessageStore) ListConversation(ctx context.Context, userA, userB string, order Order) ([]models.Message, error) {
	dir := 1
	if order == Descending {
		dir = -1
	}
	return s.find(ctx,
		bson.M{"conversationId": models.ConversationID(userA, userB)},
		bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}})
}

func (s *MongoMessageStore) UpdateDeliveryState(ctx context.Context, id string, state models.DeliveryState) (bool, error) {
	preds := models.Predecessors(state)
	if len(preds) == 0 {
		return false, nil
	}

	now := time.Now().UTC()
	set := bson.M{"deliveryState": state}
	switch state {
	case models.StateDelivered:
		set["deliveredAt"] = now
	case models.StateRead:
		set["isRead"] = true
		set["readAt"] = now
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "deliveryState": bson.M{"$in": preds}},
		bson.M{"$set": set})
	if err != nil {
		return false, mongoErr(err, "message")
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, mongoErr(err, "message")
	}
	if n == 0 {
		return false, apperrors.NotFound("message not found")
	}
	return false, nil
}

func (s *MongoMessageStore) MarkDeleted(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"content":   models.TombstoneContent,
			"kind":      models.KindDeleted,
			"isDeleted": true,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, mongoErr(err, "message")
	}
	return &m, nil
}

type headDoc struct {
	PartnerID string         `bson:"_id"`
	Last      models.Message `bson:"last"`
	Unread    int            `bson:"unread"`
}

func (s *MongoMessageStore) ConversationHeads(ctx context.Context, userID string) ([]models.ConversationHead, error) {
	isReceiverUnread := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$receiverId", userID}},
		bson.M{"$eq": bson.A{"$isRead", false}},
		bson.M{"$eq": bson.A{"$isDeleted", false}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"senderId": userID},
			bson.M{"receiverId": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", userID}}, "$receiverId", "$senderId",
			}},
			"last":   bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{isReceiverUnread, 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last.createdAt", Value: -1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongoErr(err, "conversation")
	}
	var docs []headDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr(err, "conversation")
	}

	heads := make([]models.ConversationHead, 0, len(docs))
	for _, d := range docs {
		heads = append(heads, models.ConversationHead{
			PartnerID:   d.PartnerID,
			LastMessage: d.Last,
			UnreadCount: d.Unread,
		})
	}
	return heads, nil
}

func (s *MongoMessageStore) UnreadFrom(ctx context.Context, receiverID, senderID string) ([]models.Message, error) {
	return s.find(ctx,
		bson.M{"receiverId": receiverID, "senderId": senderID, "isRead": false},
		bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}
