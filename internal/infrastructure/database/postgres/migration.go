// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/user"
	"github.com/your-org/catalog-backend/internal/domain/wishlist"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// Run applies the full schema: tables, then constraints, then indexes
func (m *Migration) Run() error {
	if err := m.RunAutoMigrations(); err != nil {
		return err
	}
	if err := m.RunSQLMigrations(); err != nil {
		return err
	}
	return m.CreateIndexes()
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	// Dependency order
	models := []interface{}{
		&user.User{},

		&product.Category{},
		&product.CategoryField{},
		&product.Brand{},
		&product.Product{},
		&product.ProductDetail{},
		&product.Media{},

		&wishlist.Wishlist{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// RunSQLMigrations applies the embedded goose migrations holding the
// unique and check constraints AutoMigrate cannot express
func (m *Migration) RunSQLMigrations() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(m.log)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run sql migrations: %w", err)
	}

	m.log.Info("✅ SQL migrations applied")
	return nil
}

// CreateIndexes creates additional indexes for listing queries
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_status_category ON products(status, category_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_status_brand ON products(status, brand_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_status_price ON products(status, price)",
		"CREATE INDEX IF NOT EXISTS idx_products_status_created ON products(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, status)",

		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_categories_order ON categories(\"order\", name)",
		"CREATE INDEX IF NOT EXISTS idx_category_fields_order ON category_fields(category_id, \"order\")",

		"CREATE INDEX IF NOT EXISTS idx_brands_active_name ON brands(is_active, name)",

		"CREATE INDEX IF NOT EXISTS idx_media_product_order ON media(product_id, \"order\")",
		"CREATE INDEX IF NOT EXISTS idx_product_details_order ON product_details(product_id, \"order\")",

		"CREATE INDEX IF NOT EXISTS idx_wishlists_user_created ON wishlists(user_id, created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.log.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts development data
func (m *Migration) SeedInitialData() error {
	m.log.Info("🌱 Seeding initial data...")

	electronics, err := m.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedProducts(electronics); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.log.Info("✅ Initial data seeded successfully")
	return nil
}

// seedCategories creates the default categories and returns Electronics
func (m *Migration) seedCategories() (*product.Category, error) {
	m.log.Info("🏷️ Seeding categories...")

	categories := []product.Category{
		{Name: "Electronics", Slug: "electronics", Description: "Electronic devices, gadgets, and accessories", Order: 1, IsActive: true},
		{Name: "Clothing", Slug: "clothing", Description: "Fashion, apparel, and accessories", Order: 2, IsActive: true},
		{Name: "Books", Slug: "books", Description: "Books, eBooks, and educational materials", Order: 3, IsActive: true},
		{Name: "Home & Garden", Slug: "home-garden", Description: "Home improvement, furniture, and garden supplies", Order: 4, IsActive: true},
	}

	var electronics product.Category
	for _, category := range categories {
		var existing product.Category
		err := m.db.Where("slug = ?", category.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := m.db.Create(&category).Error; err != nil {
				return nil, err
			}
			existing = category
			m.log.Infof("✅ Created category: %s", category.Name)
		case err != nil:
			return nil, err
		default:
			m.log.Debugf("⏭️ Category already exists: %s", category.Name)
		}
		if existing.Slug == "electronics" {
			electronics = existing
		}
	}

	fields := []product.CategoryField{
		{CategoryID: electronics.ID, Name: "warranty_months", Label: "Warranty Months", Type: "number", Order: 1},
		{CategoryID: electronics.ID, Name: "connectivity", Label: "Connectivity", Type: "select", Options: "wired,bluetooth,wifi", Order: 2},
	}
	for _, field := range fields {
		if err := m.db.Where("category_id = ? AND name = ?", field.CategoryID, field.Name).
			FirstOrCreate(&field).Error; err != nil {
			return nil, err
		}
	}

	return &electronics, nil
}

func (m *Migration) seedAdminUser() error {
	m.log.Info("👤 Seeding admin user...")

	var existing user.User
	err := m.db.Where("email = ?", "admin@example.com").First(&existing).Error
	if err == nil {
		m.log.Debugf("⏭️ Admin user already exists with ID: %d", existing.ID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin12345"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: string(hashedPassword),
		IsActive: true,
		IsAdmin:  true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.log.Info("✅ Created admin user: admin@example.com (password: admin12345)")
	return nil
}

func (m *Migration) seedProducts(electronics *product.Category) error {
	m.log.Info("🛍️ Seeding products...")

	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.log.Debug("⏭️ Products already exist")
		return nil
	}

	sony := product.Brand{Name: "Sony", Slug: "sony", IsActive: true}
	if err := m.db.Where("slug = ?", sony.Slug).FirstOrCreate(&sony).Error; err != nil {
		return err
	}

	sku := "SONY-WH1000XM5"
	headphones := product.Product{
		Name:             "Sony Headphones",
		Slug:             "sony-headphones",
		Description:      "Wireless noise cancelling over-ear headphones.",
		ShortDescription: "Noise cancelling headphones",
		Price:            decimal.RequireFromString("199.99"),
		SKU:              &sku,
		StockQuantity:    25,
		ManageStock:      true,
		StockStatus:      product.StockInStock,
		Condition:        product.ConditionNew,
		Status:           product.StatusActive,
		IsFeatured:       true,
		CategoryID:       electronics.ID,
		BrandID:          &sony.ID,
		Details: []product.ProductDetail{
			{AttributeName: "warranty_months", AttributeValue: "24", AttributeType: product.AttributeNumber, Order: 0},
			{AttributeName: "connectivity", AttributeValue: "bluetooth", AttributeType: product.AttributeText, Order: 1},
		},
	}

	if err := m.db.Create(&headphones).Error; err != nil {
		return err
	}

	m.log.Infof("✅ Created product: %s", headphones.Name)
	return nil
}
