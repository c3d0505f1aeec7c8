package projection

import (
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

// ItemFields is the stored form of it; the ID is not part of the fields.
func ItemFields(it model.Item) model.Fields {
	return model.Fields{
		FieldName:        it.Name,
		FieldIngredient:  it.Ingredient,
		FieldInstruction: it.Instruction,
		FieldImageURL:    it.ImageURL,
		FieldCategory:    it.Category,
		FieldApproved:    it.Approved,
		FieldOwner:       it.Owner,
	}
}

// ItemPatchFields returns only the fields set in p.
func ItemPatchFields(p model.ItemPatch) model.Fields {
	f := model.Fields{}
	set := func(k string, v *string) {
		if v != nil {
			f[k] = *v
		}
	}
	set(FieldName, p.Name)
	set(FieldIngredient, p.Ingredient)
	set(FieldInstruction, p.Instruction)
	set(FieldCategory, p.Category)
	set(FieldImageURL, p.ImageURL)
	return f
}

// NewCommentFields is a new comment stamped with the server time.
func NewCommentFields(author, text string) model.Fields {
	return model.Fields{
		FieldAuthor:    author,
		FieldComment:   text,
		FieldTimestamp: docstore.ServerTimestamp,
	}
}

// FavoriteFields freezes the display fields of it for author.
func FavoriteFields(author string, it model.Item) model.Fields {
	return model.Fields{
		FieldAuthor:      author,
		FieldName:        it.Name,
		FieldImageURL:    it.ImageURL,
		FieldIngredient:  it.Ingredient,
		FieldInstruction: it.Instruction,
		FieldItemID:      it.ID,
	}
}

// ProfileFields is the stored form of p.
func ProfileFields(p model.UserProfile) model.Fields {
	role := p.Role
	if !role.Valid() {
		role = model.RoleUser
	}
	return model.Fields{
		FieldDisplayName: p.DisplayName,
		FieldEmail:       p.Email,
		FieldPhone:       p.Phone,
		FieldAddress:     p.Address,
		FieldDOB:         p.DOB,
		FieldAvatarURL:   p.AvatarURL,
		FieldRole:        string(role),
	}
}

// ProfilePatchFields returns only the fields set in p.
func ProfilePatchFields(p model.ProfilePatch) model.Fields {
	f := model.Fields{}
	if p.DisplayName != nil {
		f[FieldDisplayName] = *p.DisplayName
	}
	if p.Phone != nil {
		f[FieldPhone] = *p.Phone
	}
	if p.Address != nil {
		f[FieldAddress] = *p.Address
	}
	if p.DOB != nil {
		f[FieldDOB] = *p.DOB
	}
	return f
}

// CategoryFields is the stored form of c.
func CategoryFields(c model.Category) model.Fields {
	return model.Fields{FieldCategoryName: c.Name}
}
