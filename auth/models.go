package auth

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// User is the domain representation of an authenticated party.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	PhoneNumber  string
	PasswordHash string
	Name         string
	Role         Role
	CreatedAt    time.Time
}

// BuyerProfile carries the buyer-specific registration data.
type BuyerProfile struct {
	Name         string `json:"name"`
	Municipality string `json:"municipality"`
	WardNumber   string `json:"wardNumber"`
}

// SellerProfile carries the seller-specific registration data.
type SellerProfile struct {
	Name       string `json:"name"`
	ShopName   string `json:"shopName"`
	WardNumber string `json:"wardNumber"`
}

// RegisterRequest contains registration data supplied by callers. The
// profile matching the role must be set.
type RegisterRequest struct {
	PhoneNumber string         `json:"phoneNumber"`
	Password    string         `json:"password"`
	Role        Role           `json:"role"`
	Buyer       *BuyerProfile  `json:"buyerData,omitempty"`
	Seller      *SellerProfile `json:"sellerData,omitempty"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}
