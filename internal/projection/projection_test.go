package projection

import (
	"errors"
	"testing"
	"time"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

func TestItem_DefaultsAndRequiredName(t *testing.T) {
	t.Parallel()
	it, err := Item(model.Document{ID: "f1", Fields: model.Fields{"name": "Phở", "email": "a@x.io"}})
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if it.Approved || it.ImageURL != "" || it.Owner != "a@x.io" {
		t.Fatalf("defaults: %+v", it)
	}
	v := View(it)
	if v.HasImage || v.Status != "pending" {
		t.Fatalf("view of item without image: %+v", v)
	}

	for _, f := range []model.Fields{{}, {"name": ""}, {"name": 42}, {"name": "  "}} {
		_, err := Item(model.Document{ID: "bad", Fields: f})
		var me *MalformedError
		if !errors.As(err, &me) || me.Field != FieldName {
			t.Fatalf("Item(%v) err=%v", f, err)
		}
	}
}

func TestItem_RoundTripThroughFields(t *testing.T) {
	t.Parallel()
	in := model.Item{Name: "Bún", Ingredient: "i", Instruction: "s", ImageURL: "u", Category: "Thức ăn", Owner: "a@x.io"}
	out, err := Item(model.Document{ID: "id", Fields: ItemFields(in)})
	in.ID = "id"
	if err != nil || out != in {
		t.Fatalf("got %+v err=%v", out, err)
	}
	if !View(out).HasImage {
		t.Fatalf("image must be rendered")
	}
}

func TestComment_RequiresTimestamp(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	dec := Comment("Phở")
	c, err := dec(model.Document{ID: "c1", Fields: model.Fields{
		"comment": "ngon", "userEmail": "b@x.io", "timestamp": docstore.FormatTime(at),
	}})
	if err != nil || !c.CreatedAt.Equal(at) || c.ItemName != "Phở" || c.Author != "b@x.io" {
		t.Fatalf("Comment: %+v %v", c, err)
	}
	if _, err := dec(model.Document{ID: "c2", Fields: model.Fields{"comment": "x"}}); err == nil {
		t.Fatalf("want error without timestamp")
	}
}

func TestProfile_RoleDefaults(t *testing.T) {
	t.Parallel()
	p, err := Profile(model.Document{ID: "a@x.io", Fields: model.Fields{"username": "An"}})
	if err != nil || p.Role != model.RoleUser || p.Email != "a@x.io" {
		t.Fatalf("Profile: %+v %v", p, err)
	}
	p, _ = Profile(model.Document{ID: "a@x.io", Fields: model.Fields{"role": "root"}})
	if p.Role != model.RoleUser {
		t.Fatalf("unknown role must fall back to user, got %q", p.Role)
	}
	p, _ = Profile(model.Document{ID: "a@x.io", Fields: ProfileFields(model.UserProfile{Email: "a@x.io", Role: model.RoleAdmin})})
	if p.Role != model.RoleAdmin {
		t.Fatalf("admin role lost")
	}
	if _, err := Profile(model.Document{}); err == nil {
		t.Fatalf("want error without email")
	}
}

func TestFavorite_FrozenFields(t *testing.T) {
	t.Parallel()
	it := model.Item{ID: "f1", Name: "Phở", ImageURL: "u", Ingredient: "i", Instruction: "s"}
	fav, err := Favorite(model.Document{ID: "v1", Fields: FavoriteFields("b@x.io", it)})
	if err != nil {
		t.Fatalf("Favorite: %v", err)
	}
	want := model.Favorite{ID: "v1", Author: "b@x.io", ItemID: "f1", Name: "Phở", ImageURL: "u", Ingredient: "i", Instruction: "s"}
	if fav != want {
		t.Fatalf("got %+v want %+v", fav, want)
	}
}

func TestCategoryName_Unresolved(t *testing.T) {
	t.Parallel()
	cats := []model.Category{{ID: "c1", Name: "Thức ăn"}, {ID: "c2", Name: "Đồ uống"}}
	if got := CategoryName(cats, "c2"); got != "Đồ uống" {
		t.Fatalf("CategoryName=%q", got)
	}
	if got := CategoryName(cats, "gone"); got != "" {
		t.Fatalf("unresolved must be empty, got %q", got)
	}
	if _, err := Category(model.Document{ID: "c3", Fields: model.Fields{}}); err == nil {
		t.Fatalf("want error without CategoryName")
	}
}

func TestPatchFields_OnlySet(t *testing.T) {
	t.Parallel()
	name := "new"
	f := ItemPatchFields(model.ItemPatch{Name: &name})
	if len(f) != 1 || f[FieldName] != "new" {
		t.Fatalf("ItemPatchFields=%v", f)
	}
	phone := "090"
	pf := ProfilePatchFields(model.ProfilePatch{Phone: &phone})
	if len(pf) != 1 || pf[FieldPhone] != "090" {
		t.Fatalf("ProfilePatchFields=%v", pf)
	}
}
