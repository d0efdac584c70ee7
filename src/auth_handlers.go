package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	auth := apiv1.Group("/auth")
	auth.
		POST("/register", func(ctx *gin.Context) {
			var body types.RegisterRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			if body.Role == "" {
				body.Role = "guest"
			}
			if body.Currency == "" {
				body.Currency = utils.Getenv("DEFAULT_CURRENCY", "NGN")
			}
			account := models.Account{
				Name:     body.Name,
				Email:    body.Email,
				Role:     body.Role,
				Password: string(hash),
				Status:   types.ACCOUNT_ACTIVE,
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&account).Error; err != nil {
					return err
				}
				wallet := models.Wallet{
					AccountID: account.ID,
					Currency:  body.Currency,
					Status:    types.WALLET_ACTIVE,
				}
				return tx.Create(&wallet).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
					return
				}
				log.Printf("error creating account: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			token, err := utils.NewToken(&account, 24*time.Hour)
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": account, "token": token})
		}).
		POST("/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var account models.Account
			err := db.Where(&models.Account{Email: body.Email}).First(&account).Error
			if err != nil {
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(body.Password)); err != nil {
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			if account.Status != types.ACCOUNT_ACTIVE {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "account is deactivated"})
				return
			}
			token, err := utils.NewToken(&account, 24*time.Hour)
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": account, "token": token})
		})

	// Public catalogue.
	apiv1.
		GET("/properties", func(ctx *gin.Context) {
			db := db.GetDb()
			var properties []models.Property
			err := db.
				Model(&models.Property{}).
				Where(&models.Property{Status: types.PROPERTY_LISTED}).
				Limit(100).
				Find(&properties).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": properties, "count": len(properties)})
		}).
		GET("/properties/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var property models.Property
			err := db.
				Where(&models.Property{ID: params.ID, Status: types.PROPERTY_LISTED}).
				First(&property).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": property})
		}).
		GET("/properties/:id/availability", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var query struct {
				CheckIn  string `form:"check_in" binding:"required"`
				CheckOut string `form:"check_out" binding:"required"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			checkIn, err := utils.ParseDate(query.CheckIn)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in"})
				return
			}
			checkOut, err := utils.ParseDate(query.CheckOut)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_out"})
				return
			}
			db := db.GetDb()
			var property models.Property
			err = db.
				Where(&models.Property{ID: params.ID, Status: types.PROPERTY_LISTED}).
				First(&property).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
				return
			}
			available, conflicts, err := availabilitySvc.CheckRange(nil, &property, checkIn, checkOut)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
				"available": available,
				"conflicts": conflicts,
			}})
		})
	return apiv1
}
