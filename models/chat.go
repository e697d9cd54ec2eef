package models

// ChatMetadata is the per-participant chat summary stored at
// /userChatList/{ownerId}/{chatId}. Two copies of each chat exist, one
// under each participant, and every send overwrites both. The receiver
// fields always describe the other participant from the owner's point
// of view.
type ChatMetadata struct {
	ChatID        string `json:"chatId"`
	ReceiverID    string `json:"receiverId"`
	ReceiverName  string `json:"receiverName"`
	ReceiverImage string `json:"receiverImage"`
	LastMessage   string `json:"lastMessage"`
	LastTimestamp int64  `json:"lastTimestamp"`
	CreatedBy     string `json:"createdBy"`
}
