package models

// CartQuantity pairs a product with a target quantity.
type CartQuantity struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartDiff is the minimal write set that transforms a persisted cart into a
// desired state. Deletions are applied first, then per-row updates, then
// bulk creation of new rows.
type CartDiff struct {
	Delete []int64
	Update []CartQuantity
	Create []CartQuantity
}

// Empty reports whether applying the diff would perform zero writes.
func (d *CartDiff) Empty() bool {
	return len(d.Delete) == 0 && len(d.Update) == 0 && len(d.Create) == 0
}
