package models

// Member is a chat participant as recorded by the transport layer. Members
// are remembered so that @handle targeting works without a chat-wide scan;
// the record is a cache, not the ledger identity (that is Account.ID).
type Member struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"` // without the leading @, may be empty
	Name   string `json:"name"`   // display name fallback
}

// Mention renders the member the way replies address people: @handle when
// one is known, display name otherwise.
func (m Member) Mention() string {
	if m.Handle != "" {
		return "@" + m.Handle
	}
	return m.Name
}
