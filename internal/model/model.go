// Package model defines domain entities used by services, stores and views.
package model

import (
	"strings"
	"time"
)

// Collection names used by the application.
const (
	CollectionFoods      = "foods"
	CollectionCategories = "category"
	CollectionFavorites  = "favorites"
	CollectionUsers      = "users"
	collectionComments   = "comments"
)

// CommentsCollection returns the per-item comment thread path.
// Threads are partitioned by item name.
func CommentsCollection(itemName string) string {
	return collectionComments + "/" + itemName + "/" + collectionComments
}

// IsCommentsCollection reports whether c is a comment thread path.
func IsCommentsCollection(c string) bool {
	parts := strings.Split(c, "/")
	return len(parts) == 3 && parts[0] == collectionComments && parts[1] != "" && parts[2] == collectionComments
}

// Fields is the raw, schemaless content of a document.
type Fields map[string]any

// Document is a single stored record as seen through the document store.
type Document struct {
	ID     string
	Fields Fields
}

// Snapshot is the full current content of a subscribed collection.
type Snapshot struct {
	Collection string
	Docs       []Document
}

// Role is the privilege tag of a user profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Identity is an authenticated actor, keyed by email.
type Identity struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

// Item is a recipe document.
type Item struct {
	ID          string
	Name        string
	Ingredient  string
	Instruction string
	ImageURL    string // may be empty
	Category    string // denormalized category name
	Approved    bool
	Owner       string // creator's email
}

// ItemDraft is the user input of a submission.
type ItemDraft struct {
	Name        string
	Ingredient  string
	Instruction string
	CategoryID  string
}

// ItemPatch carries content edits; nil fields are left unchanged.
type ItemPatch struct {
	Name        *string
	Ingredient  *string
	Instruction *string
	Category    *string // category id
	ImageURL    *string
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Ingredient == nil && p.Instruction == nil && p.Category == nil && p.ImageURL == nil
}

// Category is a read-only recipe category.
type Category struct {
	ID   string
	Name string
}

// Comment belongs to the thread of one item.
type Comment struct {
	ID        string
	ItemName  string
	Author    string
	Text      string
	CreatedAt time.Time
}

// Favorite is a frozen copy of an item's display fields taken at favorite-time.
type Favorite struct {
	ID          string
	Author      string
	ItemID      string // informational only; never dereferenced
	Name        string
	ImageURL    string
	Ingredient  string
	Instruction string
}

// UserProfile is keyed by email.
type UserProfile struct {
	Email       string
	DisplayName string
	Phone       string
	Address     string
	DOB         string
	AvatarURL   string
	Role        Role
}

// ProfilePatch carries owner-editable profile fields; nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	Phone       *string
	Address     *string
	DOB         *string
}

// User is an auth account stored on the backend. Passwords are never stored in plaintext.
type User struct {
	Email       string // PK
	PwdHash     []byte // Argon2id(password, SaltAuth)
	SaltAuth    []byte // per-user auth salt
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
}

// PasswordReset is a pending reset request. Only the token hash is stored.
type PasswordReset struct {
	TokenHash []byte
	Email     string
	ExpiresAt time.Time
}
