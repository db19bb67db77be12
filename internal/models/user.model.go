package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeLandlord UserType = "landlord"
	UserTypeCleaner  UserType = "cleaner"
)

func (t UserType) IsValid() bool {
	return t == UserTypeLandlord || t == UserTypeCleaner
}

type User struct {
	BaseUUIDModel
	// Subject id issued by the auth provider, never changes
	AuthSubject string    `gorm:"type:text;not null;uniqueIndex" json:"authSubject"`
	FirstName   string    `gorm:"type:text"                      json:"firstName"`
	LastName    string    `gorm:"type:text"                      json:"lastName"`
	FullName    string    `gorm:"type:text"                      json:"fullName"`
	DisplayName string    `gorm:"type:text"                      json:"displayName"`
	Email       *string   `gorm:"type:text"                      json:"email"`
	Phone       *string   `gorm:"type:text"                      json:"phone,omitempty"`
	UserType    *UserType `gorm:"type:text"                      json:"userType"`
	IsAdmin     bool      `gorm:"type:bool;default:false"        json:"isAdmin"`
	IsActive    bool      `gorm:"type:bool;default:true"         json:"isActive"`

	LastLoginAt *time.Time `gorm:"type:timestamp" json:"lastLoginAt,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if err := u.BaseUUIDModel.BeforeCreate(tx); err != nil {
		return err
	}

	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.DisplayName == "" {
		u.DisplayName = u.FullName
	}
	return nil
}

func (u *User) IsLandlord() bool {
	return u.UserType != nil && *u.UserType == UserTypeLandlord
}

func (u *User) IsCleaner() bool {
	return u.UserType != nil && *u.UserType == UserTypeCleaner
}

// UpdateFromClaims refreshes profile fields from a verified session token.
// Empty claim values never overwrite stored data.
func (u *User) UpdateFromClaims(email *string, firstName, lastName string) {
	now := time.Now()
	u.LastLoginAt = &now

	if email != nil && *email != "" {
		u.Email = email
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	if lastName != "" {
		u.LastName = lastName
	}

	if firstName != "" || lastName != "" {
		u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
		u.DisplayName = u.FullName
	}
}

type UserProfile struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	FullName    string     `json:"fullName"`
	DisplayName string     `json:"displayName"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	UserType    *UserType  `json:"userType"`
	IsAdmin     bool       `json:"isAdmin"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID.String(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Phone:       u.Phone,
		UserType:    u.UserType,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: u.LastLoginAt,
	}
}
