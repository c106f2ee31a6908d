package models

// Role is the cosmetic title assigned to an account by the Curator.
// Title and Description clear together; ImageRef survives a clear and is
// only replaced by an explicit image assignment.
type Role struct {
	AccountID   int64  `json:"account_id" db:"account_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	ImageRef    string `json:"image_ref" db:"image_ref"`
}

// HasTitle reports whether the role currently carries a title. A row whose
// title was cleared may still exist to hold an image reference.
func (r Role) HasTitle() bool {
	return r.Title != ""
}
