package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/serviexpress/backend/internal/config"
	"github.com/serviexpress/backend/internal/db"
	"github.com/serviexpress/backend/internal/handlers"
	"github.com/serviexpress/backend/internal/middleware"
	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/queue"
	"github.com/serviexpress/backend/internal/realtime"
	"github.com/serviexpress/backend/internal/services/pagos"
	"github.com/serviexpress/backend/internal/services/ranking"
	"github.com/serviexpress/backend/internal/services/wompi"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("redis no disponible, ranking sin caché:", err)
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	go queue.StartPagoConsumer()

	if err := gdb.AutoMigrate(
		&models.Usuario{},
		&models.Servicio{},
		&models.Solicitud{},
		&models.Pago{},
		&models.Calificacion{},
	); err != nil {
		log.Fatal(err)
	}

	wompiSvc := wompi.New(cfg.Wompi)
	pagosSvc := pagos.NewService(gdb, wompiSvc, hub)
	rankingSvc := ranking.NewService(gdb, rdb)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Event-Checksum",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	usuarioH := handlers.NewUsuarioHandler(gdb)
	servicioH := handlers.NewServicioHandler(gdb)
	solicitudH := handlers.NewSolicitudHandler(gdb, hub, pagosSvc)
	pagoH := handlers.NewPagoHandler(pagosSvc)
	calificacionH := handlers.NewCalificacionHandler(gdb, rankingSvc)
	proveedorH := handlers.NewProveedorHandler(gdb, hub)
	notificacionH := handlers.NewNotificacionHandler(hub)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/servicios", servicioH.ListPublic)
	api.Get("/servicios/:id", servicioH.GetOne)
	api.Get("/calificaciones", calificacionH.List)
	api.Get("/calificaciones/ranking", calificacionH.TopProveedores)
	api.Post("/pagos/webhook", pagoH.Webhook)
	api.Get("/pagos/checkout/:token", pagoH.GetByToken)

	// protected (JWT en cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	// servicios (proveedor)
	protected.Post("/servicios",
		middleware.RequireRoles("proveedor"),
		servicioH.Create,
	)
	protected.Post("/servicios/auto/:tipo",
		middleware.RequireRoles("proveedor"),
		servicioH.CreateAuto,
	)
	protected.Put("/servicios/:id",
		middleware.RequireRoles("proveedor", "admin"),
		servicioH.Update,
	)
	protected.Delete("/servicios/:id",
		middleware.RequireRoles("proveedor", "admin"),
		servicioH.Delete,
	)

	// solicitudes
	protected.Post("/solicitudes",
		middleware.RequireRoles("cliente"),
		solicitudH.Create,
	)
	protected.Get("/solicitudes", solicitudH.Historial)
	protected.Get("/solicitudes/:id", solicitudH.Detalle)
	protected.Post("/solicitudes/:id/pagar",
		middleware.RequireRoles("cliente"),
		solicitudH.Pagar,
	)
	protected.Delete("/solicitudes/:id",
		middleware.RequireRoles("cliente", "admin"),
		solicitudH.Cancelar,
	)
	protected.Patch("/solicitudes/:id/estado", solicitudH.CambiarEstado)

	// pagos
	protected.Post("/pagos/checkout",
		middleware.RequireRoles("cliente"),
		pagoH.Checkout,
	)
	protected.Get("/pagos",
		middleware.RequireRoles("admin"),
		pagoH.List,
	)
	protected.Get("/pagos/:id", pagoH.GetOne)

	// calificaciones
	protected.Post("/calificaciones",
		middleware.RequireRoles("cliente"),
		calificacionH.Create,
	)
	protected.Get("/calificaciones/mias",
		middleware.RequireRoles("cliente"),
		calificacionH.ListMine,
	)

	// proveedor
	prov := protected.Group("/proveedor", middleware.RequireRoles("proveedor"))
	prov.Patch("/disponibilidad", proveedorH.SetDisponibilidad)
	prov.Patch("/tarifa", proveedorH.SetTarifa)
	prov.Get("/solicitudes", proveedorH.SolicitudesPendientes)
	prov.Post("/solicitudes/:id/aceptar", proveedorH.AceptarSolicitud)

	// admin
	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Get("/usuarios", usuarioH.List)
	admin.Post("/usuarios", usuarioH.Create)
	admin.Put("/usuarios/:id", usuarioH.Update)
	admin.Delete("/usuarios/:id", usuarioH.Delete)
	admin.Get("/servicios", servicioH.ListPublic)
	admin.Delete("/servicios/:id", servicioH.Delete)
	admin.Get("/solicitudes", solicitudH.Historial)

	// WebSocket (autenticación por query param, sin middleware JWT)
	app.Get("/ws/notificaciones", websocket.New(notificacionH.WebSocketHandler))

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(app.Listen(":" + port))
}
