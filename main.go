// @title           Kitchen Procurement API
// @version         1.0
// @description     Procurement pricing backend - quotation comparison, negotiation and approval.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"backend/handlers"
	"backend/services"
	"backend/storage"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, strings.Split(extra, ",")...)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-XSRF-TOKEN",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
			if cronLogger != nil {
				cronLogger.Printf("%s completed successfully", name)
			}
		}
	}()
}

// ginPathToSwaggerPath converts Gin path params :param to Swagger {param}
var ginPathParamRe = regexp.MustCompile(`:([^/]+)`)

func ginPathToSwaggerPath(path string) string {
	return ginPathParamRe.ReplaceAllString(path, "{$1}")
}

// Common API response/request models for Swagger so Example Value and Model show real JSON structure.
var swaggerDefinitions = map[string]interface{}{
	"ApiResponseDataItem": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"quotation_id": map[string]interface{}{"type": "integer", "example": 42},
			"reference":    map[string]interface{}{"type": "string", "example": "Q-AB12345"},
			"period":       map[string]interface{}{"type": "string", "example": "2024-06"},
			"region":       map[string]interface{}{"type": "string", "example": "North"},
			"status":       map[string]interface{}{"type": "string", "example": "negotiation"},
			"created_at":   map[string]interface{}{"type": "string", "format": "date-time", "example": "2024-06-01T05:49:18.445326Z"},
			"updated_at":   map[string]interface{}{"type": "string", "format": "date-time", "example": "2024-06-04T12:26:17.582917Z"},
		},
	},
	"ApiResponse": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"$ref": "#/definitions/ApiResponseDataItem"},
				"description": "List of items (structure may vary by endpoint)",
			},
			"message": map[string]interface{}{"type": "string", "example": "quotations fetched successfully"},
		},
	},
	"ApiRequest": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"quotation_id": map[string]interface{}{"type": "integer", "example": 42},
			"period":       map[string]interface{}{"type": "string", "example": "2024-06"},
			"region":       map[string]interface{}{"type": "string", "example": "North"},
		},
		"description": "Request body (fields may vary by endpoint)",
	},
}

// buildSwaggerFromRoutes returns a handler that serves Swagger 2.0 JSON with all registered routes.
func buildSwaggerFromRoutes(engine *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		paths := make(map[string]interface{})
		for _, route := range engine.Routes() {
			if strings.HasPrefix(route.Path, "/swagger") {
				continue
			}
			path := ginPathToSwaggerPath(route.Path)
			if paths[path] == nil {
				paths[path] = make(map[string]interface{})
			}
			method := strings.ToLower(route.Method)

			op := map[string]interface{}{
				"summary":     route.Method + " " + route.Path,
				"description": "API endpoint: " + route.Path,
				"tags":        []string{"API"},
				"produces":    []string{"application/json"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Success - returns JSON",
						"schema":      map[string]interface{}{"$ref": "#/definitions/ApiResponse"},
					},
					"400": map[string]interface{}{
						"description": "Bad Request",
						"schema": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"error": map[string]interface{}{"type": "string"},
							},
						},
					},
					"500": map[string]interface{}{
						"description": "Internal Server Error",
						"schema": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"error": map[string]interface{}{"type": "string"},
							},
						},
					},
				},
			}

			if method == "post" || method == "put" || method == "patch" {
				op["consumes"] = []string{"application/json"}
				op["parameters"] = []map[string]interface{}{
					{
						"in":          "body",
						"name":        "body",
						"required":    true,
						"description": "JSON body. See model below; fields may vary by endpoint.",
						"schema":      map[string]interface{}{"$ref": "#/definitions/ApiRequest"},
					},
				}
			}

			(paths[path].(map[string]interface{}))[method] = op
		}
		doc := map[string]interface{}{
			"swagger":     "2.0",
			"definitions": swaggerDefinitions,
			"info": map[string]interface{}{
				"title":       "Kitchen Procurement API",
				"description": "Quotation comparison, negotiation and approval backend.",
				"version":     "1.0",
			},
			"host":     c.Request.Host,
			"basePath": "/",
			"schemes":  []string{"http", "https"},
			"paths":    paths,
		}
		c.Header("Content-Type", "application/json")
		c.JSON(http.StatusOK, doc)
	}
}

func main() {
	db := storage.InitDB()
	gdb := storage.InitGormDB()

	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Push notifications are optional; the engine runs without them.
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}
	handlers.SetFCMService(fcmService)

	emailService := services.NewEmailService(db)
	handlers.SetEmailService(emailService)

	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	// Daily maintenance: expired sessions out, demands for past periods closed.
	_, err = c.AddFunc("30 2 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			if cronLogger != nil {
				cronLogger.Println("Previous cron still running. Skipping this run.")
			}
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "CloseExpiredDemands", func(ctx context.Context) error {
			return storage.CloseExpiredDemands(db, time.Now().Format("2006-01"))
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			if cronLogger != nil {
				cronLogger.Println("Cron timeout reached, jobs cancelled")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	c.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & SESSIONS ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.DELETE("/api/session/:user_id", handlers.DeleteSessionHandler(db))

	// ==================== 2. COMPARISON MATRIX ====================
	r.GET("/api/comparison_matrix", handlers.GetComparisonMatrix(db))
	r.GET("/api/categories", handlers.GetCategories(db))
	r.GET("/api/regions/:period", handlers.GetRegions(db))
	r.GET("/api/regions/:period/:region/categories", handlers.GetRegionCategories(db))
	r.GET("/api/export_csv_comparison", handlers.ExportComparisonCSV)
	r.GET("/api/export_excel_comparison", handlers.ExportComparisonExcel)

	// ==================== 3. QUOTATION LIFECYCLE ====================
	r.GET("/api/quotations", handlers.GetQuotations(db))
	r.GET("/api/quotations/:id/items", handlers.GetQuoteItems(db))
	r.PUT("/api/quotation_negotiate/:id", handlers.NegotiateQuotation(db))
	r.POST("/api/quotations_negotiate", handlers.BatchNegotiateQuotations(db))
	r.PUT("/api/quote_item_price/:item_id", handlers.UpdateQuoteItemPrice(db))
	r.PUT("/api/quotation_approve/:id", handlers.ApproveQuotation(db))
	r.POST("/api/quotations_approve", handlers.BatchApproveQuotations(db))
	r.PUT("/api/quotation_cancel/:id", handlers.CancelQuotation(db))

	// ==================== 4. IMPORT & DOCUMENTS ====================
	r.GET("/api/quotation_template", handlers.DownloadQuotationTemplate)
	r.POST("/api/import_quotation", handlers.ImportQuotationExcel)
	r.GET("/api/approval_pdf_summary/:period/:region", handlers.GenerateApprovalSummaryPDF(db))
	r.GET("/api/quotation_qr/:id", handlers.GenerateQuotationQRCode(db))

	// ==================== 5. KITCHEN DEMANDS ====================
	r.GET("/api/kitchen_demands", handlers.GetKitchenDemands(gdb))
	r.POST("/api/kitchen_demands", handlers.CreateKitchenDemand(db, gdb))
	r.PUT("/api/kitchen_demands/:id", handlers.UpdateKitchenDemand(db, gdb))
	r.POST("/api/kitchen_demands/:id/close", handlers.CloseKitchenDemand(db, gdb))

	// ==================== 6. NOTIFICATIONS ====================
	r.POST("/api/notifications", handlers.CreateNotificationHandler(db))
	r.GET("/api/notifications", handlers.GetMyNotificationsHandler(db))
	r.PUT("/api/notifications/:id/read", handlers.MarkNotificationAsReadHandler(db))
	r.PUT("/api/notifications/read-all", handlers.MarkAllNotificationsAsReadHandler(db))
	r.DELETE("/api/notifications/:id", handlers.DeleteNotificationHandler(db))
	r.POST("/api/fcm/register-token", handlers.RegisterFCMTokenHandler(db, fcmService))
	r.DELETE("/api/fcm/remove-token", handlers.RemoveFCMTokenHandler(db, fcmService))

	// ==================== 7. USERS ====================
	r.POST("/api/users", handlers.CreateUser(db))
	r.GET("/api/users", handlers.GetAllUsers(db))
	r.GET("/api/users/:id", handlers.GetUser(db))
	r.PUT("/api/users/:id", handlers.UpdateUser(db))
	r.DELETE("/api/users/:id", handlers.DeleteUser(db))
	r.PUT("/api/users/:id/suspend", handlers.SuspendUser(db))
	r.GET("/api/get_user", handlers.GetUserFromSession(db))

	// ==================== 8. EMAIL TEMPLATES ====================
	r.POST("/api/email-templates", handlers.CreateEmailTemplate(db))
	r.GET("/api/email-templates", handlers.GetEmailTemplates(db))
	r.GET("/api/email-templates/variables", handlers.GetEmailTemplateVariables(db))
	r.GET("/api/email-templates/:id", handlers.GetEmailTemplateByID(db))
	r.PUT("/api/email-templates/:id", handlers.UpdateEmailTemplate(db))
	r.DELETE("/api/email-templates/:id", handlers.DeleteEmailTemplate(db))

	// ==================== 9. ACTIVITY LOGS ====================
	r.GET("/api/logs", handlers.GetActivityLogsHandler(db))
	r.GET("/api/log/search", handlers.SearchActivityLogsHandler(db))

	// ==================== 10. HEALTH ====================
	r.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger: prefer a committed doc, fall back to route introspection.
	routeDoc := buildSwaggerFromRoutes(r)
	r.GET("/swagger/*any", func(c *gin.Context) {
		if strings.HasSuffix(c.Param("any"), "doc.json") {
			if doc, err := swag.ReadDoc("swagger"); err == nil {
				c.Header("Content-Type", "application/json")
				c.String(http.StatusOK, doc)
				return
			}
			routeDoc(c)
			return
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"))(c)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for running cron jobs")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
