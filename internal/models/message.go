package models

import "time"

// ConversationArray names a denormalized id array stored on a conversation document.
type ConversationArray string

const ConversationMessages ConversationArray = "messages"

// Conversation groups messages between participants.
type Conversation struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey"`
	Participants []string  `json:"participants" bson:"participants" gorm:"serializer:json;type:text"`
	Messages     []string  `json:"messages" bson:"messages" gorm:"serializer:json;type:text"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Array returns a pointer to the named denormalized array, or nil for an unknown name.
func (c *Conversation) Array(field ConversationArray) *[]string {
	if field == ConversationMessages {
		return &c.Messages
	}
	return nil
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a direct message inside a conversation, owned by its sender.
type Message struct {
	ID             string     `json:"id" bson:"_id" gorm:"primaryKey"`
	ConversationID string     `json:"conversation_id" bson:"conversation_id" gorm:"index"`
	SenderID       string     `json:"sender_id" bson:"sender_id" gorm:"index"`
	Body           string     `json:"body" bson:"body"`
	Media          []MediaRef `json:"media,omitempty" bson:"media,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}

type CreateConversationRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}
