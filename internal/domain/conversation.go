package domain

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conversation is read-only from the client's perspective and fetched once
// per open thread.
type Conversation struct {
	ID        string `json:"id"`
	OtherUser User   `json:"otherUser"`
}
