package product_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/upload"
	"github.com/your-org/catalog-backend/internal/infrastructure/cache"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/redis"
	"github.com/your-org/catalog-backend/internal/infrastructure/storage"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
	"github.com/your-org/catalog-backend/internal/testutil"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	db, teardown, err := testutil.StartPostgres(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres tests skipped: %v\n", err)
	} else {
		testDB = db
	}

	code := m.Run()
	if teardown != nil {
		teardown()
	}
	os.Exit(code)
}

type fixture struct {
	db         *gorm.DB
	root       string
	uploads    *upload.Service
	categories *product.CategoryService
	brands     *product.BrandService
	products   *product.Service
}

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxSize:           2 * 1024 * 1024,
			AllowedExtensions: []string{"jpeg", "png", "jpg", "gif", "webp"},
			ThumbWidth:        300,
			ThumbHeight:       300,
			PreviewWidth:      500,
			PreviewHeight:     500,
		},
		Catalog: config.CatalogConfig{
			DefaultPerPage:  12,
			MaxPerPage:      100,
			AdminPerPage:    10,
			WishlistPerPage: 12,
			RelatedLimit:    4,
			FeaturedLimit:   8,
			CacheTTL:        time.Hour,
		},
	}
}

// newFixture wires the catalog services against the shared database and a
// fresh miniredis so cached reads are exercised too
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.RequireDB(t, testDB)

	cfg := testConfig()
	log := logger.Discard()
	root := t.TempDir()

	mr := miniredis.RunT(t)
	catalog := cache.NewCatalog(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), cfg.Catalog.CacheTTL, log)

	uploads := upload.NewService(storage.NewLocalDisk(root, "http://localhost/storage"), cfg, log)
	categories := product.NewCategoryService(db, catalog, cfg, log)
	brands := product.NewBrandService(db, catalog, uploads, cfg, log)

	return &fixture{
		db:         db,
		root:       root,
		uploads:    uploads,
		categories: categories,
		brands:     brands,
		products:   product.NewService(db, categories, brands, uploads, catalog, cfg, log),
	}
}

func (f *fixture) category(t *testing.T, name string, parentID *uint, fields ...product.FormField) *product.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), &product.CategoryRequest{
		Name:       name,
		ParentID:   parentID,
		FormFields: fields,
	})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func (f *fixture) brand(t *testing.T, name string) *product.Brand {
	t.Helper()
	b, err := f.brands.Create(context.Background(), &product.BrandRequest{Name: name}, nil)
	if err != nil {
		t.Fatalf("create brand %s: %v", name, err)
	}
	return b
}

func price(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func productRequest(name, listPrice string, categoryID uint) *product.ProductRequest {
	return &product.ProductRequest{
		Name:       name,
		Price:      price(listPrice),
		Condition:  product.ConditionNew,
		Status:     product.StatusActive,
		CategoryID: categoryID,
	}
}

func (f *fixture) product(t *testing.T, req *product.ProductRequest) *product.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("create product %s: %v", req.Name, err)
	}
	return p
}

func uintPtr(v uint) *uint { return &v }

func boolPtr(v bool) *bool { return &v }
