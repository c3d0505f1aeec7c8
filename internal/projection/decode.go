package projection

import (
	"fmt"
	"strings"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

// MalformedError names the document and field that failed to decode.
type MalformedError struct {
	ID    string
	Field string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("document %s: missing or malformed %q", e.ID, e.Field)
}

// required returns a non-blank string field.
func required(d model.Document, key string) (string, error) {
	s, ok := d.Fields[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", &MalformedError{ID: d.ID, Field: key}
	}
	return s, nil
}

// optional returns a string field or "" when absent or of another type.
func optional(d model.Document, key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

func flag(d model.Document, key string) bool {
	b, _ := d.Fields[key].(bool)
	return b
}

// Item decodes a foods document. The name is required.
func Item(d model.Document) (model.Item, error) {
	name, err := required(d, FieldName)
	if err != nil {
		return model.Item{}, err
	}
	return model.Item{
		ID:          d.ID,
		Name:        name,
		Ingredient:  optional(d, FieldIngredient),
		Instruction: optional(d, FieldInstruction),
		ImageURL:    optional(d, FieldImageURL),
		Category:    optional(d, FieldCategory),
		Approved:    flag(d, FieldApproved),
		Owner:       optional(d, FieldOwner),
	}, nil
}

// Comment decodes a comment of the thread of itemName. Text and timestamp are required.
func Comment(itemName string) func(model.Document) (model.Comment, error) {
	return func(d model.Document) (model.Comment, error) {
		text, err := required(d, FieldComment)
		if err != nil {
			return model.Comment{}, err
		}
		at, ok := docstore.ParseTime(d.Fields[FieldTimestamp])
		if !ok {
			return model.Comment{}, &MalformedError{ID: d.ID, Field: FieldTimestamp}
		}
		return model.Comment{
			ID:        d.ID,
			ItemName:  itemName,
			Author:    optional(d, FieldAuthor),
			Text:      text,
			CreatedAt: at,
		}, nil
	}
}

// Favorite decodes a favorites document. The name is required.
func Favorite(d model.Document) (model.Favorite, error) {
	name, err := required(d, FieldName)
	if err != nil {
		return model.Favorite{}, err
	}
	return model.Favorite{
		ID:          d.ID,
		Author:      optional(d, FieldAuthor),
		ItemID:      optional(d, FieldItemID),
		Name:        name,
		ImageURL:    optional(d, FieldImageURL),
		Ingredient:  optional(d, FieldIngredient),
		Instruction: optional(d, FieldInstruction),
	}, nil
}

// Profile decodes a users document keyed by email. A missing or unknown role is RoleUser.
func Profile(d model.Document) (model.UserProfile, error) {
	email := d.ID
	if email == "" {
		email = optional(d, FieldEmail)
	}
	if email == "" {
		return model.UserProfile{}, &MalformedError{ID: d.ID, Field: FieldEmail}
	}
	role := model.Role(optional(d, FieldRole))
	if !role.Valid() {
		role = model.RoleUser
	}
	return model.UserProfile{
		Email:       email,
		DisplayName: optional(d, FieldDisplayName),
		Phone:       optional(d, FieldPhone),
		Address:     optional(d, FieldAddress),
		DOB:         optional(d, FieldDOB),
		AvatarURL:   optional(d, FieldAvatarURL),
		Role:        role,
	}, nil
}

// Category decodes a category document.
func Category(d model.Document) (model.Category, error) {
	name, err := required(d, FieldCategoryName)
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{ID: d.ID, Name: name}, nil
}
