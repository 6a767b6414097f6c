package models

type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	PassHash       []byte `json:"-"`
	Verified       bool   `json:"verified"`
	GoogleID       string `json:"-"`
	Premium        bool   `json:"premium"`
	InterviewsLeft int    `json:"interviews_left"`
}

// HasPassword reports whether the account can authenticate with a password.
// OAuth-only accounts carry no hash.
func (u User) HasPassword() bool {
	return len(u.PassHash) > 0
}

// Message is the payload published to the outbound mail queue.
type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Purpose string `json:"purpose"`
}
