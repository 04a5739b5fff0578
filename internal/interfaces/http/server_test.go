package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/user"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/redis"
	"github.com/your-org/catalog-backend/internal/infrastructure/storage"
	httpserver "github.com/your-org/catalog-backend/internal/interfaces/http"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
	"github.com/your-org/catalog-backend/internal/testutil"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

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

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "catalog-test", Environment: "test", BaseURL: "https://shop.example"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:          4,
			MinPasswordLength:   8,
			PasswordResetExpiry: time.Hour,
		},
		Upload: config.UploadConfig{
			MaxSize:           2 << 20,
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

type api struct {
	t       *testing.T
	db      *gorm.DB
	mailer  *linkMailer
	handler http.Handler
}

// linkMailer keeps the reset links it was asked to send
type linkMailer struct {
	links []string
}

func (m *linkMailer) SendWelcomeEmail(context.Context, string, string) error { return nil }

func (m *linkMailer) SendPasswordResetEmail(_ context.Context, _, _, resetURL string) error {
	m.links = append(m.links, resetURL)
	return nil
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.RequireDB(t, testDB)
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	disk := storage.NewLocalDisk(t.TempDir(), "/storage")

	mailer := &linkMailer{}
	srv := httpserver.NewServerWithMailer(testConfig(), db, client, disk, mailer, logger.Discard())
	return &api{t: t, db: db, mailer: mailer, handler: srv.Handler()}
}

func (a *api) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			a.t.Fatalf("%s %s: bad json %q", method, path, w.Body.String())
		}
	}
	return w.Code, out
}

// register signs a user up and returns their access token
func (a *api) register(email string) string {
	a.t.Helper()
	code, body := a.do("POST", "/api/auth/register", "", map[string]string{
		"name":                  "Shopper",
		"email":                 email,
		"password":              "secret123",
		"password_confirmation": "secret123",
	})
	if code != http.StatusCreated {
		a.t.Fatalf("register = %d %v", code, body)
	}
	tokens := body["data"].(map[string]interface{})["tokens"].(map[string]interface{})
	return tokens["access_token"].(string)
}

func (a *api) seedProduct(categoryID uint, name, slug, price, status string) uint {
	a.t.Helper()
	p := product.Product{
		Name:        name,
		Slug:        slug,
		Price:       decimal.RequireFromString(price),
		Condition:   product.ConditionNew,
		Status:      status,
		StockStatus: product.StockInStock,
		CategoryID:  categoryID,
	}
	if err := a.db.Omit("Category", "Brand").Create(&p).Error; err != nil {
		a.t.Fatal(err)
	}
	return p.ID
}

// login returns a fresh access token for an existing user
func (a *api) login(email, password string) string {
	a.t.Helper()
	code, body := a.do("POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if code != http.StatusOK {
		a.t.Fatalf("login = %d %v", code, body)
	}
	return body["data"].(map[string]interface{})["tokens"].(map[string]interface{})["access_token"].(string)
}

func (a *api) seedCategory(name, slug string) uint {
	a.t.Helper()
	c := product.Category{Name: name, Slug: slug, IsActive: true}
	if err := a.db.Create(&c).Error; err != nil {
		a.t.Fatal(err)
	}
	return c.ID
}

func TestHealthAndReady(t *testing.T) {
	a := newAPI(t)
	if code, body := a.do("GET", "/health", "", nil); code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("health = %d %v", code, body)
	}
	if code, _ := a.do("GET", "/ready", "", nil); code != http.StatusOK {
		t.Errorf("ready = %d", code)
	}
}

func TestFilterByCategoryAndPriceRange(t *testing.T) {
	a := newAPI(t)
	electronics := a.seedCategory("Electronics", "electronics")
	books := a.seedCategory("Books", "books")
	sony := a.seedProduct(electronics, "Sony Headphones", "sony-headphones", "199.99", product.StatusActive)
	a.seedProduct(electronics, "Cheap Cable", "cheap-cable", "9.99", product.StatusActive)
	a.seedProduct(electronics, "Prototype", "prototype", "150", product.StatusDraft)
	a.seedProduct(books, "Atlas", "atlas", "120", product.StatusActive)

	code, body := a.do("GET", fmt.Sprintf("/api/products?category_id=%d&min_price=100&max_price=250", electronics), "", nil)
	if code != http.StatusOK {
		t.Fatalf("list = %d %v", code, body)
	}
	data := body["data"].([]interface{})
	meta := body["meta"].(map[string]interface{})
	if len(data) != 1 || meta["total"].(float64) != 1 {
		t.Fatalf("data = %v meta = %v", data, meta)
	}
	if id := data[0].(map[string]interface{})["id"].(float64); uint(id) != sony {
		t.Errorf("id = %v", id)
	}
	if _, ok := meta["filters"].(map[string]interface{})["sort_options"]; !ok {
		t.Errorf("filters missing: %v", meta)
	}

	code, body = a.do("GET", "/api/products?min_price=300&max_price=100", "", nil)
	if code != http.StatusUnprocessableEntity || body["success"] != false {
		t.Errorf("inverted range = %d %v", code, body)
	}
}

func TestProductBySlugHidesDrafts(t *testing.T) {
	a := newAPI(t)
	c := a.seedCategory("Audio", "audio")
	a.seedProduct(c, "Speaker", "speaker", "80", product.StatusActive)
	a.seedProduct(c, "Draft Speaker", "draft-speaker", "80", product.StatusDraft)

	if code, body := a.do("GET", "/api/products/speaker", "", nil); code != http.StatusOK || body["data"].(map[string]interface{})["product"] == nil {
		t.Errorf("active = %d %v", code, body)
	}
	if code, _ := a.do("GET", "/api/products/draft-speaker", "", nil); code != http.StatusNotFound {
		t.Errorf("draft = %d", code)
	}
}

func TestWishlistDuplicateAddIsConflict(t *testing.T) {
	a := newAPI(t)
	c := a.seedCategory("Audio", "audio")
	id := a.seedProduct(c, "Speaker", "speaker", "80", product.StatusActive)
	token := a.register("ann@example.com")
	path := fmt.Sprintf("/api/wishlist/%d", id)

	code, body := a.do("POST", path, token, nil)
	if code != http.StatusCreated || body["success"] != true {
		t.Fatalf("first add = %d %v", code, body)
	}
	code, body = a.do("POST", path, token, nil)
	if code != http.StatusConflict || body["success"] != false || body["status"].(float64) != 409 {
		t.Errorf("second add = %d %v", code, body)
	}

	code, body = a.do("POST", path+"/toggle", token, nil)
	if code != http.StatusOK || body["data"].(map[string]interface{})["in_wishlist"] != false {
		t.Errorf("toggle = %d %v", code, body)
	}

	if code, _ := a.do("GET", "/api/wishlist", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous wishlist = %d", code)
	}
}

func TestWishlistItemsAreOwned(t *testing.T) {
	a := newAPI(t)
	c := a.seedCategory("Audio", "audio")
	id := a.seedProduct(c, "Speaker", "speaker", "80", product.StatusActive)
	ann := a.register("ann@example.com")
	bob := a.register("bob@example.com")

	_, body := a.do("POST", fmt.Sprintf("/api/wishlist/%d", id), ann, map[string]interface{}{"priority": 2})
	itemID := body["data"].(map[string]interface{})["id"].(float64)
	item := fmt.Sprintf("/api/wishlist/items/%d", int(itemID))

	if code, _ := a.do("PUT", item, bob, map[string]interface{}{"priority": 4}); code != http.StatusForbidden {
		t.Errorf("bob update = %d", code)
	}
	if code, body := a.do("DELETE", "/api/wishlist", ann, nil); code != http.StatusOK || body["message"] != "Successfully cleared 1 items from your wishlist." {
		t.Errorf("clear = %d %v", code, body)
	}
	if code, _ := a.do("GET", item, ann, nil); code != http.StatusNotFound {
		t.Errorf("cleared item = %d", code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	a := newAPI(t)
	token := a.register("ann@example.com")

	if code, _ := a.do("GET", "/api/auth/me", token, nil); code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}
	if code, _ := a.do("POST", "/api/auth/logout", token, nil); code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	if code, _ := a.do("GET", "/api/auth/me", token, nil); code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d", code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := newAPI(t)
	token := a.register("ann@example.com")

	if code, _ := a.do("GET", "/api/admin/form-options", token, nil); code != http.StatusForbidden {
		t.Errorf("non-admin = %d", code)
	}

	if err := a.db.Model(&user.User{}).Where("email = ?", "ann@example.com").Update("is_admin", true).Error; err != nil {
		t.Fatal(err)
	}
	code, body := a.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret123"})
	if code != http.StatusOK {
		t.Fatalf("login = %d %v", code, body)
	}
	admin := body["data"].(map[string]interface{})["tokens"].(map[string]interface{})["access_token"].(string)

	code, body = a.do("POST", "/api/admin/categories", admin, map[string]interface{}{
		"name":        "Cameras",
		"form_fields": []map[string]interface{}{{"name": "megapixels", "type": "number", "required": true}},
	})
	if code != http.StatusCreated {
		t.Fatalf("create category = %d %v", code, body)
	}
	categoryID := body["data"].(map[string]interface{})["id"].(float64)

	code, body = a.do("POST", "/api/admin/products", admin, map[string]interface{}{
		"name":        "Mirrorless",
		"price":       "899.00",
		"sale_price":  "799.00",
		"condition":   "new",
		"status":      "active",
		"category_id": categoryID,
		"fields":      map[string]interface{}{"megapixels": 24},
	})
	if code != http.StatusCreated {
		t.Fatalf("create product = %d %v", code, body)
	}
	created := body["data"].(map[string]interface{})
	if created["effective_price"].(float64) != 799 || len(created["details"].([]interface{})) != 1 {
		t.Errorf("product = %v", created)
	}

	code, body = a.do("POST", "/api/admin/products", admin, map[string]interface{}{
		"name":        "No Megapixels",
		"price":       "10",
		"condition":   "new",
		"category_id": categoryID,
	})
	if code != http.StatusUnprocessableEntity || body["errors"].(map[string]interface{})["fields.megapixels"] == nil {
		t.Errorf("missing field = %d %v", code, body)
	}
}

func TestUserDashboardCountsWishlist(t *testing.T) {
	a := newAPI(t)
	c := a.seedCategory("Audio", "audio")
	speaker := a.seedProduct(c, "Speaker", "speaker", "80", product.StatusActive)
	a.seedProduct(c, "Amp", "amp", "120", product.StatusActive)
	a.seedProduct(c, "Prototype", "prototype", "50", product.StatusDraft)
	token := a.register("ann@example.com")

	if code, _ := a.do("GET", "/api/dashboard", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous dashboard = %d", code)
	}
	if code, _ := a.do("POST", fmt.Sprintf("/api/wishlist/%d", speaker), token, nil); code != http.StatusCreated {
		t.Fatalf("add = %d", code)
	}

	code, body := a.do("GET", "/api/dashboard", token, nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard = %d %v", code, body)
	}
	data := body["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})
	if stats["wishlist_count"].(float64) != 1 || stats["recent_products_count"].(float64) != 2 {
		t.Errorf("stats = %v", stats)
	}
	if items := data["wishlist_items"].([]interface{}); len(items) != 1 {
		t.Errorf("wishlist_items = %v", items)
	}
	saved := 0
	for _, p := range data["recent_products"].([]interface{}) {
		if p.(map[string]interface{})["in_wishlist"] == true {
			saved++
		}
	}
	if saved != 1 {
		t.Errorf("in_wishlist flagged on %d recent products", saved)
	}
}

func TestAdminDashboardStats(t *testing.T) {
	a := newAPI(t)
	c := a.seedCategory("Audio", "audio")
	a.seedProduct(c, "Speaker", "speaker", "80", product.StatusActive)
	a.seedProduct(c, "Prototype", "prototype", "50", product.StatusDraft)
	token := a.register("ann@example.com")

	if code, _ := a.do("GET", "/api/admin/dashboard", token, nil); code != http.StatusForbidden {
		t.Errorf("non-admin = %d", code)
	}
	if err := a.db.Model(&user.User{}).Where("email = ?", "ann@example.com").Update("is_admin", true).Error; err != nil {
		t.Fatal(err)
	}
	admin := a.login("ann@example.com", "secret123")

	code, body := a.do("GET", "/api/admin/dashboard", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard = %d %v", code, body)
	}
	stats := body["data"].(map[string]interface{})["stats"].(map[string]interface{})
	if stats["total_products"].(float64) != 2 || stats["total_categories"].(float64) != 1 || stats["total_brands"].(float64) != 0 {
		t.Errorf("stats = %v", stats)
	}
	if latest := stats["latest_products"].([]interface{}); len(latest) != 2 {
		t.Errorf("latest = %v", latest)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	a := newAPI(t)
	a.register("ann@example.com")

	code, body := a.do("POST", "/api/auth/forgot-password", "", map[string]string{"email": "ann@example.com"})
	if code != http.StatusOK || body["message"] != "We have emailed your password reset link!" {
		t.Fatalf("forgot = %d %v", code, body)
	}
	if len(a.mailer.links) != 1 {
		t.Fatalf("links = %v", a.mailer.links)
	}
	link, err := url.Parse(a.mailer.links[0])
	if err != nil {
		t.Fatal(err)
	}
	token := strings.TrimPrefix(link.Path, "/reset-password/")

	reset := map[string]string{
		"token":                 token,
		"email":                 "ann@example.com",
		"password":              "changed123",
		"password_confirmation": "changed123",
	}
	if code, body := a.do("POST", "/api/auth/reset-password", "", reset); code != http.StatusOK {
		t.Fatalf("reset = %d %v", code, body)
	}
	a.login("ann@example.com", "changed123")

	if code, _ := a.do("POST", "/api/auth/reset-password", "", reset); code != http.StatusUnprocessableEntity {
		t.Errorf("reused token = %d", code)
	}
	if code, _ := a.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret123"}); code != http.StatusUnauthorized {
		t.Errorf("old password login = %d", code)
	}
}
