package main

import (
	"net/http"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"

	"github.com/gin-gonic/gin"
)

func accountHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/account/me", func(ctx *gin.Context) {
			db := db.GetDb()
			var account models.Account
			err := db.
				Preload("Wallet").
				First(&account, ctx.GetUint("id")).
				Error
			if err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": account})
		}).
		POST("/account/deactivate", func(ctx *gin.Context) {
			db := db.GetDb()
			err := db.
				Model(&models.Account{}).
				Where(&models.Account{ID: ctx.GetUint("id")}).
				Update("status", types.ACCOUNT_DEACTIVATED).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"status": types.ACCOUNT_DEACTIVATED}})
		}).
		POST("/account/recipient", func(ctx *gin.Context) {
			var body struct {
				RecipientCode string `json:"recipient_code" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			err := db.
				Model(&models.Account{}).
				Where(&models.Account{ID: ctx.GetUint("id")}).
				Update("recipient_code", body.RecipientCode).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"recipient_code": body.RecipientCode}})
		})
	return g
}
