package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/controllers"
	"github.com/masapp/restaurant-backend/middlewares"
	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/services"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	sessionSvc := services.NewSessionService(db)
	orderSvc := services.NewOrderService(db, sessionSvc)
	paymentSvc := services.NewPaymentService(db, sessionSvc, orderSvc)

	userCtrl := controllers.NewUserController(db)
	qrCtrl := controllers.NewQRController(db, sessionSvc)
	menuCtrl := controllers.NewMenuController(db)
	orderCtrl := controllers.NewOrderController(db, orderSvc, sessionSvc)
	paymentCtrl := controllers.NewPaymentController(db, paymentSvc, sessionSvc)
	adminCtrl := controllers.NewAdminController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// -- DINER (table token instead of login) --
	r.GET("/qr/verify", qrCtrl.VerifyQR)
	r.POST("/tables/scan", qrCtrl.ScanTable)
	r.GET("/menus", menuCtrl.GetAllMenus)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.GET("/orders/:order_id/balance", paymentCtrl.GetOrderBalance)
	r.POST("/payments/system", paymentCtrl.CreateSystemPayment)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/api")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/users", userCtrl.GetAllUsers)

	// TABLE SESSIONS (waiter/cashier/admin)
	sessions := auth.Group("/sessions")
	sessions.Use(middlewares.RequireRoles(models.RoleWaiter, models.RoleCashier, models.RoleAdmin))
	{
		sessions.POST("/", qrCtrl.GenerateQR)
		sessions.GET("/", qrCtrl.ListSessions)
		sessions.POST("/close", qrCtrl.CloseSession)
	}

	// MENUS (admin)
	menus := auth.Group("/menus")
	menus.Use(middlewares.RequireRoles(models.RoleAdmin))
	{
		menus.POST("/", menuCtrl.CreateMenu)
		menus.PATCH("/:menu_id", menuCtrl.UpdateMenu)
		menus.DELETE("/:menu_id", menuCtrl.DeleteMenu)
	}
	auth.GET("/menus", menuCtrl.GetAllMenus)

	// ORDERS (waiter/cashier/admin)
	orders := auth.Group("/orders")
	orders.Use(middlewares.RequireRoles(models.RoleWaiter, models.RoleKitchen, models.RoleCashier, models.RoleAdmin))
	{
		orders.GET("/", orderCtrl.GetAllOrders)
		orders.GET("/:order_id", orderCtrl.GetOrderByID)
		orders.PATCH("/:order_id", orderCtrl.UpdateOrder)
		orders.POST("/:order_id/cancel", orderCtrl.CancelOrder)
		orders.POST("/:order_id/change-table", orderCtrl.ChangeTable)
		orders.POST("/:order_id/prepare", orderCtrl.PrepareOrder)
		orders.POST("/:order_id/ready", orderCtrl.ReadyOrder)
		orders.POST("/:order_id/complete", orderCtrl.CompleteOrder)
	}

	// KDS item-level (kitchen serves via waiter)
	items := auth.Group("/order-items")
	items.Use(middlewares.RequireRoles(models.RoleWaiter, models.RoleKitchen, models.RoleAdmin))
	{
		items.POST("/:item_id/start", orderCtrl.StartItem)
		items.POST("/:item_id/ready", orderCtrl.ReadyItem)
		items.POST("/:item_id/serve", orderCtrl.ServeItem)
	}

	auth.GET("/kitchen/display", middlewares.RequireRoles(models.RoleKitchen, models.RoleAdmin), orderCtrl.GetKitchenDisplay)

	// PAYMENTS (cashier/admin)
	payments := auth.Group("/payments")
	payments.Use(middlewares.RequireRoles(models.RoleCashier, models.RoleAdmin))
	{
		payments.POST("/", paymentCtrl.CreatePayment)
		payments.GET("/", paymentCtrl.GetPayments)
	}

	// ADMIN
	auth.GET("/dashboard/stats", middlewares.RequireRoles(models.RoleAdmin), adminCtrl.GetDashboardStats)
	auth.GET("/notifications", adminCtrl.GetNotifications)

	// SUPER ADMIN
	restaurants := auth.Group("/restaurants")
	restaurants.Use(middlewares.RequireRoles(models.RoleSuperAdmin))
	{
		restaurants.POST("/", adminCtrl.CreateRestaurant)
		restaurants.GET("/", adminCtrl.GetAllRestaurants)
	}

	// WebSocket endpoint, JWT via query string
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/events", controllers.EventsHandler)
	}

	return r
}
