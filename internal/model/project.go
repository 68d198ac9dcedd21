package model

// ProjectVersion belongs to the customer version it currently points at.
// Creating a new customer version re-points its projects.
type ProjectVersion struct {
	ID          int64  `db:"id"           json:"id"`
	Name        string `db:"name"         json:"name"`
	CustomerID  int64  `db:"customer_id"  json:"customer_id"`
	ExternalRef *int64 `db:"external_ref" json:"external_ref,omitempty"`
	IsCurrent   bool   `db:"is_current"   json:"is_current"`
}
