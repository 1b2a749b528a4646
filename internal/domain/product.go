package domain

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Price       float64   `json:"price" validate:"gte=0"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ItemSnapshot is a value copy of a product taken when it enters the cart.
type ItemSnapshot struct {
	ItemID      string  `bson:"item_id" json:"itemId"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description"`
	Price       float64 `bson:"price" json:"price"`
}

func SnapshotOf(p Product) ItemSnapshot {
	return ItemSnapshot{
		ItemID:      p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
	}
}
