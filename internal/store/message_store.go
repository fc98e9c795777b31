package store

import (
	"context"
	"errors"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"gorm.io/gorm"
)

// GormMessageStore keeps messages in the relational database.
type GormMessageStore struct {
	db *gorm.DB
}

func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

func gormErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Unavailable("message store unavailable", err)
}

func (s *GormMessageStore) Persist(ctx context.Context, m *models.Message) (string, error) {
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
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", gormErr(err, "message")
	}
	return m.ID, nil
}

func (s *GormMessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, gormErr(err, "message")
	}
	return &m, nil
}

func (s *GormMessageStore) ListConversation(ctx context.Context, userA, userB string, order Order) ([]models.Message, error) {
	dir := "created_at asc, id asc"
	if order == Descending {
		dir = "created_at desc, id desc"
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", models.ConversationID(userA, userB)).
		Order(dir).
		Find(&messages).Error
	if err != nil {
		return nil, gormErr(err, "conversation")
	}
	return messages, nil
}

func (s *GormMessageStore) UpdateDeliveryState(ctx context.Context, id string, state models.DeliveryState) (bool, error) {
	var preds []string
	for _, p := range models.Predecessors(state) {
		preds = append(preds, string(p))
	}
	if len(preds) == 0 {
		return false, nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"delivery_state": string(state)}
	switch state {
	case models.StateDelivered:
		updates["delivered_at"] = now
	case models.StateRead:
		updates["is_read"] = true
		updates["read_at"] = now
	}

	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND delivery_state IN ?", id, preds).
		Updates(updates)
	if result.Error != nil {
		return false, gormErr(result.Error, "message")
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing moved: either already past state, or missing.
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, gormErr(err, "message")
	}
	if count == 0 {
		return false, apperrors.NotFound("message not found")
	}
	return false, nil
}

func (s *GormMessageStore) MarkDeleted(ctx context.Context, id string) (*models.Message, error) {
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    models.TombstoneContent,
			"kind":       string(models.KindDeleted),
			"is_deleted": true,
		})
	if result.Error != nil {
		return nil, gormErr(result.Error, "message")
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFound("message not found")
	}
	return s.Get(ctx, id)
}

// Latest message per partner, ranked inside each partner group.
const headsQuery = `
	SELECT id FROM (
		SELECT id,
			ROW_NUMBER() OVER (
				PARTITION BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
				ORDER BY created_at DESC, id DESC
			) AS rn
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
	) ranked
	WHERE rn = 1
`

func (s *GormMessageStore) ConversationHeads(ctx context.Context, userID string) ([]models.ConversationHead, error) {
	db := s.db.WithContext(ctx)

	var ids []string
	if err := db.Raw(headsQuery, userID, userID, userID).Scan(&ids).Error; err != nil {
		return nil, gormErr(err, "conversation")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var latest []models.Message
	if err := db.Where("id IN ?", ids).Order("created_at desc, id desc").Find(&latest).Error; err != nil {
		return nil, gormErr(err, "conversation")
	}

	var counts []struct {
		SenderID string
		Unread   int
	}
	err := db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ? AND is_deleted = ?", userID, false, false).
		Group("sender_id").
		Scan(&counts).Error
	if err != nil {
		return nil, gormErr(err, "conversation")
	}
	unread := make(map[string]int, len(counts))
	for _, c := range counts {
		unread[c.SenderID] = c.Unread
	}

	heads := make([]models.ConversationHead, 0, len(latest))
	for _, m := range latest {
		partner := m.PartnerOf(userID)
		heads = append(heads, models.ConversationHead{
			PartnerID:   partner,
			LastMessage: m,
			UnreadCount: unread[partner],
		})
	}
	return heads, nil
}

func (s *GormMessageStore) UnreadFrom(ctx context.Context, receiverID, senderID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, gormErr(err, "conversation")
	}
	return messages, nil
}
