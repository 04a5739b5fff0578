// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/catalog-backend/internal/interfaces/http/handlers"
	"github.com/your-org/catalog-backend/internal/interfaces/http/middleware"
)

// Handlers groups every endpoint handler the API mounts
type Handlers struct {
	Auth          *handlers.AuthHandler
	Products      *handlers.ProductHandler
	AdminProducts *handlers.AdminProductHandler
	Categories    *handlers.CategoryHandler
	Brands        *handlers.BrandHandler
	Wishlist      *handlers.WishlistHandler
	Dashboard     *handlers.DashboardHandler
}

// Guards are the authentication middlewares shared by the route groups
type Guards struct {
	Auth     gin.HandlerFunc
	Optional gin.HandlerFunc
}

// SetupRoutes mounts the whole API under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	SetupAuthRoutes(rg, h, g)
	SetupCatalogRoutes(rg, h, g)
	SetupWishlistRoutes(rg, h, g)
	SetupAdminRoutes(rg, h, g)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)

		protected := auth.Group("")
		protected.Use(g.Auth)
		{
			protected.POST("/logout", h.Auth.Logout)
			protected.GET("/me", h.Auth.Me)
			protected.PUT("/profile", h.Auth.UpdateProfile)
			protected.PUT("/password", h.Auth.UpdatePassword)
		}
	}
}

// SetupCatalogRoutes sets up the public product, category and brand routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	products := rg.Group("/products")
	products.Use(g.Optional)
	{
		products.GET("", h.Products.GetProducts)
		products.GET("/featured", h.Products.GetFeaturedProducts)
		products.GET("/:slug", h.Products.GetProduct)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", h.Categories.GetCategories)
		categories.GET("/tree", h.Categories.GetCategoryTree)
		categories.GET("/:id/fields", h.Categories.GetCategoryFields)
	}

	rg.GET("/brands", h.Brands.GetBrands)
}

// SetupWishlistRoutes sets up the wishlist and user dashboard routes; all
// require authentication
func SetupWishlistRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	rg.GET("/dashboard", g.Auth, h.Dashboard.UserDashboard)

	wishlist := rg.Group("/wishlist")
	wishlist.Use(g.Auth)
	{
		wishlist.GET("", h.Wishlist.GetWishlist)
		wishlist.DELETE("", h.Wishlist.ClearWishlist)
		wishlist.GET("/check/:productId", h.Wishlist.CheckWishlist)
		wishlist.GET("/items/:id", h.Wishlist.GetItem)
		wishlist.PUT("/items/:id", h.Wishlist.UpdateItem)
		wishlist.DELETE("/items/:id", h.Wishlist.RemoveItem)
		wishlist.POST("/:productId", h.Wishlist.AddToWishlist)
		wishlist.POST("/:productId/toggle", h.Wishlist.ToggleWishlist)
	}
}

// SetupAdminRoutes sets up catalog management routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	admin := rg.Group("/admin")
	admin.Use(g.Auth, middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", h.Dashboard.AdminDashboard)
		admin.GET("/form-options", h.AdminProducts.FormOptions)

		categories := admin.Group("/categories")
		{
			categories.GET("", h.Categories.AdminListCategories)
			categories.POST("", h.Categories.CreateCategory)
			categories.GET("/:id", h.Categories.GetCategory)
			categories.PUT("/:id", h.Categories.UpdateCategory)
			categories.DELETE("/:id", h.Categories.DeleteCategory)
			categories.POST("/:id/fields", h.Categories.AddField)
			categories.PUT("/:id/fields/:fieldId", h.Categories.UpdateField)
			categories.DELETE("/:id/fields/:fieldId", h.Categories.DeleteField)
		}

		brands := admin.Group("/brands")
		{
			brands.GET("", h.Brands.AdminListBrands)
			brands.POST("", h.Brands.CreateBrand)
			brands.GET("/:id", h.Brands.GetBrand)
			brands.PUT("/:id", h.Brands.UpdateBrand)
			brands.DELETE("/:id", h.Brands.DeleteBrand)
		}

		products := admin.Group("/products")
		{
			products.GET("", h.AdminProducts.ListProducts)
			products.POST("", h.AdminProducts.CreateProduct)
			products.GET("/:id", h.AdminProducts.GetProduct)
			products.PUT("/:id", h.AdminProducts.UpdateProduct)
			products.DELETE("/:id", h.AdminProducts.DeleteProduct)
			products.DELETE("/:id/media/:mediaId", h.AdminProducts.DeleteMedia)
			products.GET("/:id/sheet.pdf", h.AdminProducts.DownloadSheet)
		}
	}
}
