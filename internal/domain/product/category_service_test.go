package product_test

import (
	"context"
	"testing"

	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
)

func TestCategoryParentCannotBeDescendant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.category(t, "Electronics", nil)
	audio := f.category(t, "Audio", &root.ID)
	headphones := f.category(t, "Headphones", &audio.ID)

	cases := map[string]struct {
		parent *uint
		want   string
	}{
		"self":       {&root.ID, "A category cannot be its own parent."},
		"descendant": {&headphones.ID, "A category cannot be moved under its own subcategory."},
		"missing":    {uintPtr(9999), "The selected parent id is invalid."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.categories.Update(ctx, root.ID, &product.CategoryRequest{Name: "Electronics", ParentID: tc.parent})
			fields := fieldErrors(t, err)
			if got := fields["parent_id"]; len(got) == 0 || got[0] != tc.want {
				t.Errorf("parent_id = %v", got)
			}
		})
	}

	ancestors, err := f.categories.Ancestors(ctx, headphones.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ancestors) != 2 || ancestors[0].ID != audio.ID || ancestors[1].ID != root.ID {
		t.Errorf("ancestors = %+v", ancestors)
	}
}

func TestCategoryDeleteGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.category(t, "Home", nil)
	child := f.category(t, "Kitchen", &parent.ID, product.FormField{Name: "material"})

	err := f.categories.Delete(ctx, parent.ID)
	if !apperror.Is(err, apperror.KindConflict) || err.Error() != "Cannot delete category with subcategories" {
		t.Errorf("delete parent: %v", err)
	}

	p := f.product(t, productRequest("Pan", "30", child.ID))
	if err := f.categories.Delete(ctx, child.ID); !apperror.Is(err, apperror.KindConflict) {
		t.Errorf("delete with products: %v", err)
	}

	if err := f.products.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.categories.Delete(ctx, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}

	var fields int64
	f.db.Model(&product.CategoryField{}).Where("category_id = ?", child.ID).Count(&fields)
	if fields != 0 {
		t.Errorf("field rows left: %d", fields)
	}
	if err := f.categories.Delete(ctx, parent.ID); err != nil {
		t.Errorf("delete emptied parent: %v", err)
	}
}

func TestAllFieldsNearestDefinitionWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.category(t, "Electronics", nil,
		product.FormField{Name: "warranty_months", Type: "number", Required: true},
		product.FormField{Name: "colour", Label: "Colour"},
	)
	child := f.category(t, "Phones", &root.ID,
		product.FormField{Name: "colour", Label: "Finish", Type: "select", Options: "black,silver"},
	)

	fields, err := f.categories.AllFields(ctx, child.ID)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]product.CategoryField{}
	for _, field := range fields {
		byName[field.Name] = field
	}
	if len(fields) != 2 || byName["colour"].Label != "Finish" || byName["colour"].CategoryID != child.ID {
		t.Errorf("fields = %+v", fields)
	}

	rules, err := f.categories.FieldValidationRules(ctx, child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := rules["fields.warranty_months"]; len(got) == 0 || got[0] != "required" {
		t.Errorf("warranty rules = %v", got)
	}

	missing, err := f.categories.AllFields(ctx, 9999)
	if err != nil || len(missing) != 0 {
		t.Errorf("missing category: %v %v", missing, err)
	}
}

func TestCategoryUpdateSyncsFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.category(t, "Books", nil,
		product.FormField{Name: "author", Required: true},
		product.FormField{Name: "isbn"},
	)

	updated, err := f.categories.Update(ctx, c.ID, &product.CategoryRequest{
		Name: "Books",
		FormFields: []product.FormField{
			{Name: "isbn", Label: "ISBN"},
			{Name: "pages", Type: "number"},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	names := map[string]string{}
	for _, field := range updated.Fields {
		names[field.Name] = field.Label
	}
	if len(names) != 2 || names["isbn"] != "ISBN" || names["pages"] != "Pages" {
		t.Errorf("fields = %v", names)
	}
	if len(updated.FormFields) != 2 {
		t.Errorf("form_fields = %+v", updated.FormFields)
	}

	// omitting form_fields leaves them alone
	kept, err := f.categories.Update(ctx, c.ID, &product.CategoryRequest{Name: "Printed Books"})
	if err != nil {
		t.Fatal(err)
	}
	if len(kept.Fields) != 2 || kept.Slug != "printed-books" {
		t.Errorf("category = %+v", kept)
	}
}

func TestCategoryFieldCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Music", nil)

	field, err := f.categories.AddField(ctx, c.ID, &product.FieldInput{Name: "format", Type: "select", Options: "vinyl,cd"})
	if err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if _, err := f.categories.AddField(ctx, c.ID, &product.FieldInput{Name: "format"}); err == nil {
		t.Error("duplicate field name accepted")
	}

	if _, err := f.categories.UpdateField(ctx, c.ID, field.ID, &product.FieldInput{Name: "format", Type: "select", Options: "vinyl,cd,tape", IsRequired: true}); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	got, err := f.categories.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.FormFields) != 1 || !got.FormFields[0].Required {
		t.Errorf("form_fields = %+v", got.FormFields)
	}

	if err := f.categories.DeleteField(ctx, c.ID, field.ID); err != nil {
		t.Fatalf("DeleteField: %v", err)
	}
	got, _ = f.categories.Get(ctx, c.ID)
	if len(got.Fields) != 0 || len(got.FormFields) != 0 {
		t.Errorf("fields left: %+v", got.Fields)
	}
}

func TestTreeNestsActiveCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.category(t, "Sports", nil)
	f.category(t, "Cycling", &root.ID)
	hidden, err := f.categories.Create(ctx, &product.CategoryRequest{Name: "Archery", ParentID: &root.ID, IsActive: boolPtr(false)})
	if err != nil {
		t.Fatal(err)
	}

	tree, err := f.categories.Tree(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].Name != "Cycling" {
		t.Errorf("tree = %+v", tree)
	}

	all, _ := f.categories.Tree(ctx, true)
	if len(all[0].Children) != 2 || all[0].Children[0].ID != hidden.ID {
		t.Errorf("full tree = %+v", all)
	}
}
