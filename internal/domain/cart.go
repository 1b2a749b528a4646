package domain

import "time"

type CartEntry struct {
	ScanID       string `bson:"_id" json:"UIDresult"`
	ItemSnapshot `bson:",inline"`
	ToggledAt    time.Time `bson:"toggled_at" json:"toggledAt"`
}

type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"
)

type ToggleResult struct {
	Action ToggleAction
	Entry  *CartEntry
}
