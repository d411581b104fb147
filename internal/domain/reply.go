package domain

import (
	"fmt"
	"time"
)

// MessageType differentiates plain-text replies from media references.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeMedia MessageType = "MEDIA"
)

// ParseMessageType validates a reply kind coming from the API.
func ParseMessageType(raw string) (MessageType, error) {
	switch kind := MessageType(raw); kind {
	case MessageTypeText, MessageTypeMedia:
		return kind, nil
	}
	return "", fmt.Errorf("unknown message type %q", raw)
}

// ReplyAuthorType indicates which side of the conversation posted a reply.
type ReplyAuthorType string

const (
	ReplyAuthorSuperAdmin ReplyAuthorType = "SUPER_ADMIN"
	ReplyAuthorCustomer   ReplyAuthorType = "CUSTOMER"
)

// ParseReplyAuthorType validates a reply side coming from the API.
func ParseReplyAuthorType(raw string) (ReplyAuthorType, error) {
	switch side := ReplyAuthorType(raw); side {
	case ReplyAuthorSuperAdmin, ReplyAuthorCustomer:
		return side, nil
	}
	return "", fmt.Errorf("unknown reply author type %q", raw)
}

// TicketReply is one append-only entry in a ticket's conversation thread,
// independent of the command/audit machinery. Displayed newest-first.
type TicketReply struct {
	ID             string
	TicketID       string
	Message        string
	MessageType    MessageType
	PostedByUserID string
	AuthorType     ReplyAuthorType
	CreatedAt      time.Time
}
