package main

import (
	"net/http"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
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
			booking := &models.Booking{
				PropertyID: body.PropertyID,
				GuestID:    ctx.GetUint("id"),
				CheckIn:    checkIn,
				CheckOut:   checkOut,
				Guests:     body.Guests,
			}
			booking, err = bookingsSvc.Create(booking)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			guestId := ctx.GetUint("id")
			bookings, err := bookingsSvc.ListForGuest(guestId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			booking, err := bookingsSvc.Get(params.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			accountId := ctx.GetUint("id")
			if booking.GuestID != accountId && booking.ProviderID != accountId {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PATCH("/bookings/:id/confirm", func(ctx *gin.Context) {
			booking, ok := hostBooking(ctx)
			if !ok {
				return
			}
			confirmed, err := bookingsSvc.Confirm(booking.ID, ctx.GetString("email"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": confirmed})
		}).
		PATCH("/bookings/:id/reject", func(ctx *gin.Context) {
			booking, ok := hostBooking(ctx)
			if !ok {
				return
			}
			var body types.RejectBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rejected, err := bookingsSvc.Reject(booking.ID, ctx.GetString("email"), body.Reason)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rejected})
		}).
		PATCH("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CancelBookingRequestBody
			ctx.ShouldBindJSON(&body)
			if body.Reason == "" {
				body.Reason = "cancelled by guest"
			}
			booking, err := bookingsSvc.Get(params.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			accountId := ctx.GetUint("id")
			if booking.GuestID != accountId && booking.ProviderID != accountId {
				ctx.Status(http.StatusNotFound)
				return
			}
			cancelled, err := bookingsSvc.Cancel(params.ID, ctx.GetString("email"), body.Reason)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": cancelled})
		}).
		PATCH("/bookings/:id/checkin", func(ctx *gin.Context) {
			booking, ok := hostBooking(ctx)
			if !ok {
				return
			}
			checkedIn, err := bookingsSvc.CheckIn(booking.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": checkedIn})
		}).
		PATCH("/bookings/:id/complete", func(ctx *gin.Context) {
			booking, ok := hostBooking(ctx)
			if !ok {
				return
			}
			completed, err := bookingsSvc.Complete(booking.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": completed})
		}).
		GET("/host/bookings", func(ctx *gin.Context) {
			providerId := ctx.GetUint("id")
			db := db.GetDb()
			var bookings []models.Booking
			err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ProviderID: providerId}).
				Preload("Property").
				Preload("Guest").
				Order("created_at desc").
				Find(&bookings).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		})
	return g
}

// hostBooking binds the id param and checks the caller hosts the booking.
func hostBooking(ctx *gin.Context) (*models.Booking, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return nil, false
	}
	booking, err := bookingsSvc.Get(params.ID)
	if err != nil {
		abortWithError(ctx, err)
		return nil, false
	}
	if booking.ProviderID != ctx.GetUint("id") {
		ctx.Status(http.StatusNotFound)
		return nil, false
	}
	return booking, true
}
