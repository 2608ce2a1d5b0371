package model

// User role constants
const (
	UserRolePatient = "patient"
	UserRoleDoctor  = "doctor"
	UserRoleAdmin   = "admin"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a registered account: identity plus profile metadata.
// Rows are created at sign-up and patched via profile edit, never deleted.
type User struct {
	Base
	Email        string  `json:"email" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Role         string  `json:"role" db:"role"`
	Name         string  `json:"name" db:"name"`
	Phone        *string `json:"phone" db:"phone"`
	Address      *string `json:"address" db:"address"`
	DateOfBirth  *string `json:"date_of_birth" db:"date_of_birth"`
	ProfileImage *string `json:"profile_img" db:"profile_image"`
	Specialty    *string `json:"specialty" db:"specialty"`
	Status       string  `json:"status" db:"status"`
}

// Profile is the display projection the directory hands to consumers.
// A zero Profile paired with ok=false means "no matching directory entry".
type Profile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profile_img"`
	Specialty    string `json:"specialty"`
	Role         string `json:"role"`
}

// SignupRequest represents account creation parameters
type SignupRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	Name        string  `json:"name" binding:"required"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth"`
	Role        string  `json:"role" binding:"required,oneof=patient doctor"`
	Specialty   *string `json:"specialty"`
	Status      string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest patches profile metadata only; identity fields are immutable.
type UpdateProfileRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	ProfileImage *string `json:"profile_img"`
	Specialty    *string `json:"specialty"`
	Status       *string `json:"status" binding:"omitempty,oneof=active inactive"`
}
