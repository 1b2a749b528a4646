package domain

import "time"

type ScanTag struct {
	UIDresult    string    `bson:"_id" json:"UIDresult"`
	LinkedItemID *string   `bson:"linked_item_id" json:"linkedItemId"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsLinked reports whether the tag currently points at a catalog item.
func (t ScanTag) IsLinked() bool {
	return t.LinkedItemID != nil && *t.LinkedItemID != ""
}
