package directory

// Buyer is the directory projection of a buyer party: the user row joined
// with the buyer profile.
type Buyer struct {
	UserID       string
	Name         string
	PhoneNumber  string
	Municipality string
	WardNumber   string
}

// BuyerWithScore is the phone-lookup result: buyer identity plus a freshly
// computed credit score. The score is a read-time join, never stored.
type BuyerWithScore struct {
	Buyer
	Score     int
	RiskLevel string
}
