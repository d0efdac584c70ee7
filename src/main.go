package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"hbs/src/boot"
	"hbs/src/config"
	"hbs/src/lib"
	"hbs/src/middlewares"
	"hbs/src/services"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

const apiPrefix = "/api/v1"

var (
	availabilitySvc *services.Availability
	walletsSvc      *services.Wallets
	bookingsSvc     *services.Bookings
	paymentsSvc     *services.Payments
)

// setupServices wires the service graph. Tests call it with an in-memory
// database and a fake gateway.
func setupServices(gdb *gorm.DB, gateway services.Gateway, cfg services.PaymentsConfig) {
	availabilitySvc = services.NewAvailability(gdb)
	allowRefunds, _ := strconv.ParseBool(os.Getenv("WALLET_ALLOW_BLOCKED_REFUNDS"))
	walletsSvc = services.NewWallets(gdb, allowRefunds)
	bookingsSvc = services.NewBookings(gdb, availabilitySvc, walletsSvc, services.BookingsConfig{
		Notify: cfg.Notify,
		Hotel:  lib.GetHotelAPIClient(),
	})
	paymentsSvc = services.NewPayments(gdb, gateway, bookingsSvc, walletsSvc, cfg)
}

func publishReview(payload types.JSONB) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("error serializing review payload: %s\n", err.Error())
		return
	}
	if err := lib.SQSProduceMessage(config.ReviewQueueName, string(b)); err != nil {
		log.Printf("error publishing to %s: %s\n", config.ReviewQueueName, err.Error())
	}
}

var bookableDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	today := time.Now().Truncate(24 * time.Hour)
	return !datetime.Before(today)
}

var gtfield validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	fieldValue := field.Interface().(string)
	fielddatetime, err := time.Parse(config.DATE_PARSE_FORMAT, fieldValue)
	if err != nil {
		return false
	}
	return datetime.After(fielddatetime)
}

var ltfield validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	fieldValue := field.Interface().(string)
	fielddatetime, err := time.Parse(config.DATE_PARSE_FORMAT, fieldValue)
	if err != nil {
		return false
	}
	return datetime.Before(fielddatetime)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
		v.RegisterValidation("ltdate", ltfield)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// statusFromError maps a service error's kind to an HTTP status.
func statusFromError(err error) int {
	switch types.Kind(err) {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindConflict:
		return http.StatusConflict
	case types.KindForbidden:
		return http.StatusForbidden
	case types.KindAuthentication:
		return http.StatusUnauthorized
	case types.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case types.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(ctx *gin.Context, err error) {
	ctx.JSON(statusFromError(err), gin.H{"error": err.Error()})
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	gdb := boot.InitDb()
	setupServices(gdb, lib.GetPaystackClient(), services.PaymentsConfig{
		WebhookSecret: os.Getenv("PAYSTACK_SECRET_KEY"),
		Cache:         lib.GetRedisClient(),
		Review:        publishReview,
		Notify:        lib.Notify,
	})
	boot.InitScheduler(paymentsSvc.ReconcilePending)
	go boot.InitBroker()

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "x-paystack-signature")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	registerValidators()

	router.Use(middlewares.MaintenanceMiddleware)

	publicRoutes(router)
	webhookRoute(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		accountHandlers(authorized)
		propertyHandlers(authorized)
		bookingHandlers(authorized)
		paymentHandlers(authorized)
		walletHandlers(authorized)
	}

	router.Run(":" + utils.Getenv("PORT", "8080"))
}
