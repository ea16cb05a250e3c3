package chat

import (
	"time"

	"github.com/zhouzirui/edupal/backend/internal/model/role"
)

// Session is a point-in-time view of a conversation, safe to hand to
// renderers and encoders.
type Session struct {
	ID        string    `json:"id"`
	Role      role.Role `json:"role"`
	UserName  string    `json:"userName,omitempty"`
	Turns     []Turn    `json:"turns"`
	Typing    bool      `json:"typing"`
	Pending   int       `json:"pending"`
	Closed    bool      `json:"closed,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
