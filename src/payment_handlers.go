package main

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// webhookRoute receives gateway events. The body must be read raw because
// the signature covers the exact bytes sent. Everything except a signature
// mismatch acknowledges with 2xx so the gateway stops retrying.
func webhookRoute(g *gin.Engine) {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/paystack", func(ctx *gin.Context) {
		raw, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}
		signature := ctx.GetHeader("x-paystack-signature")
		if err := paymentsSvc.HandleWebhook(raw, signature); err != nil {
			if types.Kind(err) == types.KindAuthentication {
				ctx.Status(http.StatusUnauthorized)
				return
			}
			log.Printf("error applying webhook: %s\n", err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Status(http.StatusOK)
	})
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments/charge", func(ctx *gin.Context) {
			var body types.InitializeChargeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			booking, err := bookingsSvc.Get(body.BookingID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			if booking.GuestID != ctx.GetUint("id") {
				ctx.Status(http.StatusNotFound)
				return
			}
			payment, auth, err := paymentsSvc.InitializeCharge(body.BookingID, body.Email)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{
				"payment":           payment,
				"authorization_url": auth.AuthorizationURL,
				"access_code":       auth.AccessCode,
				"reference":         auth.Reference,
			}})
		}).
		POST("/payments/charge-intent", func(ctx *gin.Context) {
			var body types.InitializeChargeWithIntentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			checkIn, err := utils.ParseDate(body.CheckIn)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in"})
				return
			}
			checkOut, err := utils.ParseDate(body.CheckOut)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_out"})
				return
			}
			payload := types.PendingBookingPayload{
				PropertyID: body.PropertyID,
				GuestID:    ctx.GetUint("id"),
				CheckIn:    checkIn,
				CheckOut:   checkOut,
				Guests:     body.Guests,
				BasePrice:  body.BasePrice,
				Fees:       body.Fees,
				Tax:        body.Tax,
				Discount:   body.Discount,
				Currency:   body.Currency,
			}
			payment, auth, err := paymentsSvc.InitializeChargeWithIntent(body.Email, payload)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{
				"payment":           payment,
				"authorization_url": auth.AuthorizationURL,
				"access_code":       auth.AccessCode,
				"reference":         auth.Reference,
			}})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			payment, err := paymentsSvc.Get(id)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		PATCH("/payments/:id/resolve-review", func(ctx *gin.Context) {
			if ctx.GetString("role") != "admin" {
				ctx.Status(http.StatusForbidden)
				return
			}
			id, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := paymentsSvc.ResolveReview(id); err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "review_required": false}})
		}).
		POST("/payments/reconcile", func(ctx *gin.Context) {
			if ctx.GetString("role") != "admin" {
				ctx.Status(http.StatusForbidden)
				return
			}
			window := time.Duration(60) * time.Minute
			if raw := ctx.Query("window_minutes"); raw != "" {
				minutes, err := strconv.Atoi(raw)
				if err != nil || minutes < 1 {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid window_minutes"})
					return
				}
				window = time.Duration(minutes) * time.Minute
			}
			go paymentsSvc.ReconcilePending(window)
			ctx.JSON(http.StatusAccepted, gin.H{"data": gin.H{"status": "reconciling"}})
		})
	return g
}
