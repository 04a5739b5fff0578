package product_test

import (
	"context"
	"errors"
	"io/fs"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"github.com/your-org/catalog-backend/internal/testutil"
	"gorm.io/gorm/clause"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	return appErr.Fields
}

func TestListFiltersByCategoryAndPriceRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	electronics := f.category(t, "Electronics", nil)
	books := f.category(t, "Books", nil)

	req := productRequest("Sony Headphones", "199.99", electronics.ID)
	req.SKU = "SONY-WH1000XM5"
	f.product(t, req)
	f.product(t, productRequest("Studio Monitor", "320.00", electronics.ID))
	f.product(t, productRequest("Cable", "9.99", electronics.ID))
	f.product(t, productRequest("Cookbook", "150.00", books.ID))

	hidden := productRequest("Prototype Earbuds", "120.00", electronics.ID)
	hidden.Status = product.StatusDraft
	f.product(t, hidden)

	page, err := f.products.List(ctx, product.FilterRequest{
		CategoryID: itoa(electronics.ID),
		MinPrice:   "100",
		MaxPrice:   "250",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pagination.Total != 1 || len(page.Products) != 1 {
		t.Fatalf("total = %d, len = %d", page.Pagination.Total, len(page.Products))
	}
	if got := page.Products[0].Name; got != "Sony Headphones" {
		t.Errorf("name = %q", got)
	}
	if page.Filters == nil || len(page.Filters.Categories) != 2 || len(page.Filters.SortOptions) != 4 {
		t.Errorf("filters = %+v", page.Filters)
	}
}

func TestListRejectsUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.products.List(context.Background(), product.FilterRequest{CategoryID: "999", BrandID: "998"})
	fields := fieldErrors(t, err)
	if fields["category_id"][0] != "The selected category does not exist." {
		t.Errorf("category_id = %v", fields["category_id"])
	}
	if fields["brand_id"][0] != "The selected brand does not exist." {
		t.Errorf("brand_id = %v", fields["brand_id"])
	}
}

func TestListSearchMatchesAnyColumn(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Audio", nil)

	byName := productRequest("Turntable", "250", c.ID)
	byDescription := productRequest("Speaker", "90", c.ID)
	byDescription.Description = "Pairs well with a turntable"
	bySKU := productRequest("Stylus", "30", c.ID)
	bySKU.SKU = "TURNTABLE-STY-1"
	f.product(t, byName)
	f.product(t, byDescription)
	f.product(t, bySKU)
	f.product(t, productRequest("Headphones", "80", c.ID))

	page, err := f.products.List(context.Background(), product.FilterRequest{Search: "turntable"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pagination.Total != 3 {
		t.Errorf("total = %d, want 3", page.Pagination.Total)
	}
}

func TestListSortsByPrice(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Garden", nil)
	for _, p := range []string{"40", "15.5", "99.99", "15.5", "0"} {
		f.product(t, productRequest("Tool "+p, p, c.ID))
	}

	for _, sortBy := range []string{product.SortPriceAsc, product.SortPriceDesc} {
		page, err := f.products.List(context.Background(), product.FilterRequest{SortBy: sortBy})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for i := 1; i < len(page.Products); i++ {
			prev, cur := page.Products[i-1].Price, page.Products[i].Price
			if sortBy == product.SortPriceAsc && prev.GreaterThan(cur) {
				t.Errorf("%s: %s before %s", sortBy, prev, cur)
			}
			if sortBy == product.SortPriceDesc && prev.LessThan(cur) {
				t.Errorf("%s: %s before %s", sortBy, prev, cur)
			}
		}
	}
}

func TestListCacheInvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Toys", nil)
	f.product(t, productRequest("Kite", "20", c.ID))

	first, err := f.products.List(ctx, product.FilterRequest{})
	if err != nil {
		t.Fatal(err)
	}

	// a row written behind the service's back stays hidden by the cache
	if err := f.db.Exec("UPDATE products SET name = 'Renamed'").Error; err != nil {
		t.Fatal(err)
	}
	cached, _ := f.products.List(ctx, product.FilterRequest{})
	if cached.Products[0].Name != "Kite" {
		t.Errorf("expected cached page, got %q", cached.Products[0].Name)
	}

	f.product(t, productRequest("Yo-yo", "5", c.ID))
	fresh, _ := f.products.List(ctx, product.FilterRequest{})
	if fresh.Pagination.Total != first.Pagination.Total+1 {
		t.Errorf("total = %d after write", fresh.Pagination.Total)
	}
}

func TestGetBySlugHidesInactiveProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Lighting", nil)

	lamp := f.product(t, productRequest("Desk Lamp", "45", c.ID))
	for _, name := range []string{"Floor Lamp", "Bulb", "Strip", "Lantern", "Spot"} {
		f.product(t, productRequest(name, "10", c.ID))
	}
	draft := productRequest("Neon Sign", "300", c.ID)
	draft.Status = product.StatusDraft
	hidden := f.product(t, draft)

	got, related, err := f.products.GetBySlug(ctx, lamp.Slug)
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got.ID != lamp.ID {
		t.Errorf("id = %d", got.ID)
	}
	if len(related) != 4 {
		t.Errorf("related = %d, want 4", len(related))
	}
	for _, r := range related {
		if r.ID == lamp.ID || r.Status != product.StatusActive {
			t.Errorf("unexpected related product %+v", r)
		}
	}

	if _, _, err := f.products.GetBySlug(ctx, hidden.Slug); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("draft product: err = %v", err)
	}
}

func TestCreateValidatesPricingAndReferences(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Bikes", nil)

	req := productRequest("Road Bike", "500", c.ID)
	req.SalePrice = price("500")
	req.BrandID = uintPtr(404)
	req.Condition = "mint"
	_, err := f.products.Create(context.Background(), req, nil)

	fields := fieldErrors(t, err)
	for _, key := range []string{"sale_price", "brand_id", "condition"} {
		if len(fields[key]) == 0 {
			t.Errorf("missing error for %s in %v", key, fields)
		}
	}
	var count int64
	f.db.Model(&product.Product{}).Count(&count)
	if count != 0 {
		t.Errorf("products = %d after rejected create", count)
	}
}

func TestCreateRejectsPricesOutsideColumn(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Bikes", nil)

	tests := []struct {
		name, list, sale, field string
	}{
		{"sub-cent prices rounding to equal", "9.999", "9.995", "price"},
		{"sub-cent sale price", "10", "9.995", "sale_price"},
		{"price overflowing column", "100000000", "", "price"},
		{"huge exponent", "1e1000000000", "", "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := productRequest("Road Bike", tt.list, c.ID)
			if tt.sale != "" {
				req.SalePrice = price(tt.sale)
			}
			_, err := f.products.Create(context.Background(), req, nil)
			if fields := fieldErrors(t, err); len(fields[tt.field]) == 0 {
				t.Errorf("missing error for %s in %v", tt.field, fields)
			}
		})
	}

	var count int64
	f.db.Model(&product.Product{}).Count(&count)
	if count != 0 {
		t.Errorf("products = %d after rejected creates", count)
	}
}

func TestCreateStoresImagesAndDynamicFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	electronics := f.category(t, "Electronics", nil, product.FormField{Name: "warranty_months", Type: "number", Required: true})
	audio := f.category(t, "Audio", &electronics.ID, product.FormField{Name: "connectivity", Type: "select", Options: "wired,bluetooth"})
	sony := f.brand(t, "Sony")

	req := productRequest("Sony Headphones", "199.99", audio.ID)
	req.SalePrice = price("149.99")
	req.BrandID = &sony.ID
	req.Fields = map[string]interface{}{"warranty_months": "24", "connectivity": "bluetooth"}
	req.Attributes = map[string]interface{}{"noise_cancelling": true}

	images := []*multipart.FileHeader{
		testutil.FileHeader(t, "images", "front.png", testutil.PNG(t, 800, 800)),
		testutil.FileHeader(t, "images", "side.png", testutil.PNG(t, 600, 400)),
	}
	p, err := f.products.Create(ctx, req, images)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if p.Slug != "sony-headphones" || p.PublishedAt == nil {
		t.Errorf("slug = %q published_at = %v", p.Slug, p.PublishedAt)
	}
	if len(p.Media) != 2 || p.Media[0].ThumbPath == "" || p.Media[1].Order != 1 {
		t.Fatalf("media = %+v", p.Media)
	}

	values := map[string]interface{}{}
	for i := range p.Details {
		values[p.Details[i].AttributeName] = p.Details[i].CastedValue()
	}
	if values["warranty_months"] != float64(24) || values["connectivity"] != "bluetooth" || values["noise_cancelling"] != true {
		t.Errorf("details = %v", values)
	}

	r := product.NewResource(p, f.uploads.URL)
	if r.EffectivePrice != 149.99 || !r.IsOnSale || r.DiscountPercentage == nil || *r.DiscountPercentage != 25 {
		t.Errorf("pricing = %v %v %v", r.EffectivePrice, r.IsOnSale, r.DiscountPercentage)
	}
	if r.Brand == nil || r.Brand.Name != "Sony" || r.PrimaryImage == nil {
		t.Errorf("resource = %+v", r)
	}
	if r.StockQuantity != nil {
		t.Error("stock quantity exposed without manage_stock")
	}
}

func TestCreateRequiresInheritedFields(t *testing.T) {
	f := newFixture(t)
	parent := f.category(t, "Electronics", nil, product.FormField{Name: "warranty_months", Type: "number", Required: true})
	child := f.category(t, "Phones", &parent.ID)

	_, err := f.products.Create(context.Background(), productRequest("Phone", "300", child.ID), nil)
	fields := fieldErrors(t, err)
	if len(fields["fields.warranty_months"]) == 0 {
		t.Errorf("errors = %v", fields)
	}
}

func TestCreateDiscardsFilesWhenTransactionFails(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Art", nil)

	req := productRequest("Poster", "25", c.ID)
	// passes parsing but cannot be encoded, so the write fails after the images are stored
	req.Attributes = []interface{}{map[string]interface{}{"name": "palette", "type": "json", "value": make(chan int)}}

	images := []*multipart.FileHeader{testutil.FileHeader(t, "images", "poster.png", testutil.PNG(t, 640, 480))}
	if _, err := f.products.Create(context.Background(), req, images); err == nil {
		t.Fatal("expected failure")
	}

	var products, media int64
	f.db.Unscoped().Model(&product.Product{}).Count(&products)
	f.db.Model(&product.Media{}).Count(&media)
	if products != 0 || media != 0 {
		t.Errorf("rows left behind: products=%d media=%d", products, media)
	}

	_ = filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			t.Errorf("stored file left behind: %s", path)
		}
		return nil
	})
}

func TestUpdateUpsertsDynamicFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Electronics", nil, product.FormField{Name: "warranty_months", Type: "number"})

	req := productRequest("Speaker", "80", c.ID)
	req.Status = product.StatusDraft
	req.Fields = map[string]interface{}{"warranty_months": 12}
	req.Attributes = map[string]interface{}{"colour": "black"}
	p := f.product(t, req)
	if p.PublishedAt != nil {
		t.Fatal("draft was published")
	}

	req.Status = product.StatusActive
	req.Fields = map[string]interface{}{"warranty_months": 24}
	req.Attributes = map[string]interface{}{"colour": ""}
	updated, err := f.products.Update(ctx, p.ID, req, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(updated.Details) != 1 || updated.Details[0].AttributeName != "warranty_months" || updated.Details[0].AttributeValue != "24" {
		t.Errorf("details = %+v", updated.Details)
	}
	if updated.PublishedAt == nil {
		t.Error("published_at not set on activation")
	}

	var rows int64
	f.db.Model(&product.ProductDetail{}).Where("product_id = ? AND attribute_name = ?", p.ID, "warranty_months").Count(&rows)
	if rows != 1 {
		t.Errorf("warranty rows = %d", rows)
	}
}

func TestUpdateRejectsTakenSKU(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Cameras", nil)
	first := productRequest("Camera", "900", c.ID)
	first.SKU = "CAM-1"
	f.product(t, first)
	second := f.product(t, productRequest("Lens", "400", c.ID))

	req := productRequest("Lens", "400", c.ID)
	req.SKU = "CAM-1"
	_, err := f.products.Update(context.Background(), second.ID, req, nil)
	if fields := fieldErrors(t, err); fields["sku"][0] != "The sku has already been taken." {
		t.Errorf("sku = %v", fields["sku"])
	}
}

func TestDeleteRemovesMediaDetailsAndWishlistEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Kitchen", nil)

	req := productRequest("Kettle", "35", c.ID)
	req.Attributes = map[string]interface{}{"capacity_litres": 1.7}
	p, err := f.products.Create(ctx, req, []*multipart.FileHeader{testutil.FileHeader(t, "images", "kettle.png", testutil.PNG(t, 400, 400))})
	if err != nil {
		t.Fatal(err)
	}
	paths := p.Media[0].Paths()

	if err := f.db.Exec("INSERT INTO users (name, email, password, is_admin, is_active, created_at, updated_at) VALUES ('Ann', 'ann@example.com', 'x', false, true, now(), now())").Error; err != nil {
		t.Fatal(err)
	}
	if err := f.db.Exec("INSERT INTO wishlists (user_id, product_id, priority, created_at, updated_at) SELECT id, ?, 0, now(), now() FROM users", p.ID).Error; err != nil {
		t.Fatal(err)
	}

	if err := f.products.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for table, want := range map[string]int64{"media": 0, "product_details": 0, "wishlists": 0} {
		var n int64
		f.db.Table(table).Count(&n)
		if n != want {
			t.Errorf("%s rows = %d", table, n)
		}
	}
	for _, path := range paths {
		if ok, _ := f.uploads.Exists(ctx, path); ok {
			t.Errorf("%s survived delete", path)
		}
	}
	if _, err := f.products.Get(ctx, p.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestAdminListCountsDetails(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Office", nil)

	req := productRequest("Office Chair", "180", c.ID)
	req.Status = product.StatusInactive
	req.Attributes = map[string]interface{}{"material": "mesh", "adjustable": true}
	f.product(t, req)
	f.product(t, productRequest("Desk", "260", c.ID))

	page, err := f.products.AdminList(context.Background(), product.AdminFilter{Search: "chair"})
	if err != nil {
		t.Fatalf("AdminList: %v", err)
	}
	if page.Pagination.Total != 1 || page.Products[0].DetailsCount != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestSaveDynamicFieldsUpdatesByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Shoes", nil)

	req := productRequest("Runner", "120", c.ID)
	req.Attributes = map[string]interface{}{"size": "42"}
	p := f.product(t, req)
	id := float64(p.Details[0].ID)

	err := f.products.SaveDynamicFields(ctx, p.ID, []interface{}{
		map[string]interface{}{"id": id, "name": "eu_size", "value": 43, "type": "integer"},
	})
	if err != nil {
		t.Fatalf("SaveDynamicFields: %v", err)
	}

	var details []product.ProductDetail
	f.db.Where("product_id = ?", p.ID).Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).Find(&details)
	if len(details) != 1 || details[0].AttributeName != "eu_size" || details[0].CastedValue() != int64(43) {
		t.Errorf("details = %+v", details)
	}
}

func TestFormOptionsLabels(t *testing.T) {
	svc := product.NewService(nil, nil, nil, nil, nil, testConfig(), nil)
	opts := svc.FormOptions()
	conditions := opts["conditions"].([]product.Option)
	if len(conditions) != 3 || conditions[2].Label != "Refurbished" {
		t.Errorf("conditions = %+v", conditions)
	}
	statuses := opts["stock_statuses"].([]product.Option)
	if statuses[0].Label != "In Stock" {
		t.Errorf("stock statuses = %+v", statuses)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestAdminStatsCountsEveryStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.category(t, "Audio", nil)
	sony := f.brand(t, "Sony")
	f.brand(t, "Bose")

	draft := productRequest("Prototype", "10", c.ID)
	draft.Status = product.StatusDraft
	f.product(t, draft)
	for i := 0; i < 5; i++ {
		req := productRequest("Speaker "+strconv.Itoa(i), "50", c.ID)
		req.BrandID = &sony.ID
		f.product(t, req)
	}

	stats, err := f.products.AdminStats(ctx)
	if err != nil {
		t.Fatalf("AdminStats: %v", err)
	}
	if stats.TotalProducts != 6 || stats.TotalCategories != 1 || stats.TotalBrands != 2 {
		t.Errorf("totals = %d/%d/%d", stats.TotalProducts, stats.TotalCategories, stats.TotalBrands)
	}
	if len(stats.LatestProducts) != 5 {
		t.Fatalf("latest = %d", len(stats.LatestProducts))
	}
	newest := stats.LatestProducts[0]
	if newest.Name != "Speaker 4" || newest.Status != "Active" || newest.Category != "Audio" || newest.Brand != "Sony" {
		t.Errorf("newest = %+v", newest)
	}
	for _, p := range stats.LatestProducts {
		if p.Name == "Prototype" {
			t.Error("oldest product listed among the latest five")
		}
	}
}

func TestLatestSkipsInactiveProducts(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Audio", nil)

	f.product(t, productRequest("Walkman", "99", c.ID))
	draft := productRequest("Prototype", "10", c.ID)
	draft.Status = product.StatusDraft
	f.product(t, draft)

	latest, err := f.products.Latest(context.Background(), product.RecentLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || latest[0].Name != "Walkman" {
		t.Errorf("latest = %+v", latest)
	}
}
