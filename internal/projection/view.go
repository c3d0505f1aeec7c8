package projection

import "github.com/and161185/recipebook/internal/model"

// ItemView is the presentation record of an item.
type ItemView struct {
	ID          string
	Name        string
	Ingredient  string
	Instruction string
	ImageURL    string
	HasImage    bool
	Category    string
	Status      string // "approved" or "pending"
	Owner       string
}

// View derives the presentation record of it.
func View(it model.Item) ItemView {
	status := "pending"
	if it.Approved {
		status = "approved"
	}
	return ItemView{
		ID:          it.ID,
		Name:        it.Name,
		Ingredient:  it.Ingredient,
		Instruction: it.Instruction,
		ImageURL:    it.ImageURL,
		HasImage:    it.ImageURL != "",
		Category:    it.Category,
		Status:      status,
		Owner:       it.Owner,
	}
}

// Views maps View over items.
func Views(items []model.Item) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = View(it)
	}
	return out
}

// CategoryName resolves id against a fetched category list.
// An id that no longer resolves yields "".
func CategoryName(categories []model.Category, id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// NewestFirst orders comments by creation time, most recent first.
func NewestFirst(a, b model.Comment) int { return b.CreatedAt.Compare(a.CreatedAt) }
