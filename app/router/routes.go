// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/app/handlers"
	"github.com/kimmokhwa/beautiful-management-app/app/middleware"
	"github.com/kimmokhwa/beautiful-management-app/config"
	_ "github.com/kimmokhwa/beautiful-management-app/docs"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups every endpoint handler mounted by the router
type Handlers struct {
	System    handlers.SystemHandlerInterface
	Material  handlers.MaterialHandlerInterface
	Procedure handlers.ProcedureHandlerInterface
	Dashboard handlers.DashboardHandlerInterface
	Upload    handlers.UploadHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app       *fiber.App
	cfg       *config.ProductionConfig
	handlers  Handlers
	logger    *zap.Logger
	accessLog io.Writer
}

// NewFiberRouter creates a new Fiber router. accessLog receives the JSON access log lines; nil means stdout.
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, log *zap.Logger, accessLog io.Writer) Router {
	if log == nil {
		log = zap.NewNop()
	}
	if accessLog == nil {
		accessLog = os.Stdout
	}

	r := &FiberRouter{
		cfg:       cfg,
		handlers:  h,
		logger:    log,
		accessLog: accessLog,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Beautiful Management API",
		ServerHeader: "Beautiful-Management",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	// Unlimited operational endpoints
	r.app.Get("/health", r.handlers.System.Health)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}
	r.app.Get("/swagger/doc.json", r.serveSwaggerJSON)

	api := r.app.Group("/api")
	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit))

	api.Get("/test-connection", r.handlers.System.TestConnection)

	materials := api.Group("/materials")
	materials.Get("/", r.handlers.Material.ListMaterials)
	materials.Post("/", r.handlers.Material.CreateMaterial)
	materials.Get("/:id", r.handlers.Material.GetMaterial)
	materials.Put("/:id", r.handlers.Material.UpdateMaterial)
	materials.Delete("/:id", r.handlers.Material.DeleteMaterial)

	procedures := api.Group("/procedures")
	procedures.Get("/", r.handlers.Procedure.ListProcedures)
	procedures.Post("/", r.handlers.Procedure.CreateProcedure)
	procedures.Get("/:id", r.handlers.Procedure.GetProcedure)
	procedures.Put("/:id", r.handlers.Procedure.UpdateProcedure)
	procedures.Delete("/:id", r.handlers.Procedure.DeleteProcedure)
	procedures.Put("/:id/recommend", r.handlers.Procedure.ToggleRecommendation)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", r.handlers.Dashboard.Stats)
	dashboard.Get("/top-margin", r.handlers.Dashboard.TopMargin)
	dashboard.Get("/top-margin-rate", r.handlers.Dashboard.TopMarginRate)
	dashboard.Get("/recommended", r.handlers.Dashboard.Recommended)
	dashboard.Get("/categories", r.handlers.Dashboard.CategoryStats)

	// Uploads parse whole workbooks, so they get a stricter budget
	upload := api.Group("/upload")
	uploadLimit := r.rateLimiter(r.cfg.Security.UploadRateLimit)
	upload.Post("/materials", uploadLimit, r.handlers.Upload.UploadMaterials)
	upload.Post("/procedures", uploadLimit, r.handlers.Upload.UploadProcedures)
	upload.Get("/history", r.handlers.Upload.History)
	upload.Get("/history/:id/errors", r.handlers.Upload.ErrorReport)
	upload.Post("/history/:id/rollback", uploadLimit, r.handlers.Upload.Rollback)
	upload.Get("/templates/:type", r.handlers.Upload.Template)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured",
		zap.Bool("metrics", r.cfg.Metrics.Enabled),
		zap.String("environment", r.cfg.Deployment.Environment))
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: utils.NewRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic recovered",
				zap.Any("panic", e),
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
		},
	}))

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{fiber.HeaderXRequestID, fiber.HeaderContentDisposition},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     r.accessLog,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}
}

// rateLimiter limits requests per client IP; max <= 0 disables the limit
func (r *FiberRouter) rateLimiter(max int) fiber.Handler {
	if max <= 0 {
		return func(c fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// GetApp returns the underlying Fiber app
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// serveSwaggerJSON serves the registered swagger document
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		r.logger.Error("Failed to read swagger document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.SendString(doc)
}

// notFoundHandler handles 404 errors
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Route not found",
		Error: dto.ErrorDetail{
			Code: "ROUTE_NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// errorHandler renders errors that escape the handlers, such as body limit or bind failures
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errCode = clientErrorCode(code)
		}
	}

	requestID := requestid.FromContext(c)
	if code >= fiber.StatusInternalServerError {
		r.logger.Error("Unhandled request error",
			zap.Int("status", code),
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
	}

	details := fiber.Map{
		"timestamp":  utils.UTCNow().Unix(),
		"request_id": requestID,
	}
	if code >= fiber.StatusInternalServerError && !r.cfg.Deployment.IsProduction() {
		details["error"] = err.Error()
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errCode,
			Details: details,
		},
	})
}

func clientErrorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusNotFound:
		return "ROUTE_NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case fiber.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	default:
		return "REQUEST_FAILED"
	}
}
