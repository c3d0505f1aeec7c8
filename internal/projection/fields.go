// Package projection maps raw store documents to typed records and back.
package projection

// Document field keys.
const (
	FieldName        = "name"
	FieldIngredient  = "ingredient"
	FieldInstruction = "instruct"
	FieldImageURL    = "imageUrl"
	FieldCategory    = "category"
	FieldApproved    = "approve"
	FieldOwner       = "email"

	FieldAuthor    = "userEmail"
	FieldComment   = "comment"
	FieldTimestamp = "timestamp"

	FieldItemID = "foodId"

	FieldDisplayName = "username"
	FieldEmail       = "email"
	FieldPhone       = "phoneNumber"
	FieldAddress     = "address"
	FieldDOB         = "dob"
	FieldAvatarURL   = "avatarUrl"
	FieldRole        = "role"

	FieldCategoryName = "CategoryName"
)
