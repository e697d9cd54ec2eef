package models

// Message is an append-only record stored at
// /userMessages/{chatId}/{pushId}. Timestamp is epoch milliseconds;
// push ids give the subtree its natural insertion order.
type Message struct {
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"` // text, image
	ImageURL  string `json:"imageUrl,omitempty"`
}
