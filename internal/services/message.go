package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
)

const maxMessageLength = 2000

type MessageService struct {
	store    *repositories.Store
	blobs    blobstore.Store
	notifier realtime.Notifier
	now      clock
}

func NewMessageService(store *repositories.Store, blobs blobstore.Store, notifier realtime.Notifier) *MessageService {
	return &MessageService{store: store, blobs: blobs, notifier: notifier, now: systemClock}
}

// CreateConversation opens a conversation between creatorID and participants.
func (s *MessageService) CreateConversation(ctx context.Context, creatorID string, participants []string) (*models.Conversation, error) {
	members := []string{creatorID}
	seen := map[string]bool{creatorID: true}
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		members = append(members, p)
	}
	if len(members) < 2 {
		return nil, models.NewValidationError("a conversation needs at least one other participant")
	}

	conv := &models.Conversation{
		ID:           models.NewID(),
		Participants: members,
		Messages:     []string{},
		CreatedAt:    s.now(),
	}
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, id := range members {
			if _, err := s.store.Users.GetByID(ctx, id); err != nil {
				return err
			}
		}
		return s.store.Conversations.Create(ctx, conv)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Send appends a message from senderID, who must take part in the conversation.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID, body string, media []models.MediaRef) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" && len(media) == 0 {
		return nil, models.NewValidationError("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, models.NewValidationError("message body is too long")
	}

	msg := &models.Message{
		ID:             models.NewID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Media:          media,
		CreatedAt:      s.now(),
	}
	var conv *models.Conversation
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.store.Conversations.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(senderID) {
			return models.NewForbiddenError("you are not part of this conversation")
		}
		if err := s.store.Messages.Create(ctx, msg); err != nil {
			return err
		}
		if _, err := s.store.Conversations.AddToSet(ctx, conversationID, models.ConversationMessages, msg.ID); err != nil {
			return err
		}
		_, err = s.store.Users.AddToSet(ctx, senderID, models.UserMessages, msg.ID)
		return err
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("message_send").Inc()
		return nil, err
	}

	for _, p := range conv.Participants {
		if p != senderID {
			s.notifier.Notify(ctx, p, realtime.EventMessageNew, msg)
		}
	}
	return msg, nil
}

// List returns messages of a conversation, newest first, to a participant.
func (s *MessageService) List(ctx context.Context, requesterID, conversationID string, page Page) ([]models.Message, error) {
	page = page.normalize()
	conv, err := s.store.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, models.NewForbiddenError("you are not part of this conversation")
	}
	return s.store.Messages.ListByConversation(ctx, conversationID, page.skip(), int64(page.Limit))
}

// Delete removes a message sent by requesterID along with its ids in the
// conversation and sender arrays. Attached blobs are deleted after commit.
func (s *MessageService) Delete(ctx context.Context, requesterID, messageID string) error {
	var msg *models.Message
	var conv *models.Conversation
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		msg, err = s.store.Messages.DeleteOwned(ctx, messageID, requesterID)
		if err != nil {
			return ownershipError(ctx, err, "message", messageID, s.store.Messages.Exists)
		}
		conv, err = s.store.Conversations.Pull(ctx, msg.ConversationID, models.ConversationMessages, msg.ID)
		if ignoreNotFound(err) != nil {
			return err
		}
		_, err = s.store.Users.Pull(ctx, msg.SenderID, models.UserMessages, msg.ID)
		return ignoreNotFound(err)
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("message_delete").Inc()
		return err
	}

	bg := context.WithoutCancel(ctx)
	for _, m := range msg.Media {
		_, err := s.blobs.Delete(bg, m.BlobID)
		bestEffort(ctx, "message_blob_delete", err)
	}
	if conv != nil {
		for _, p := range conv.Participants {
			if p != requesterID {
				s.notifier.Notify(ctx, p, realtime.EventMessageDeleted, map[string]string{
					"conversation_id": msg.ConversationID,
					"message_id":      msg.ID,
				})
			}
		}
	}
	return nil
}
