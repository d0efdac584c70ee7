package main

import (
	"log"
	"net/http"

	"hbs/src/db"
	"hbs/src/models"
	"hbs/src/types"
	"hbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func propertyHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/properties", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "host" {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "only hosts can list properties"})
				return
			}
			var body types.CreatePropertyRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			providerId := ctx.GetUint("id")
			status := types.PROPERTY_DRAFT
			if body.Publish {
				status = types.PROPERTY_LISTED
			}
			source := types.SOURCE_INTERNAL
			var externalId *string
			if body.Source == string(types.SOURCE_HOTELAPI) {
				if body.ExternalID == "" {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "external properties need an external_id"})
					return
				}
				source = types.SOURCE_HOTELAPI
				externalId = &body.ExternalID
			}
			property := models.Property{
				ProviderID:   providerId,
				Title:        body.Title,
				Slug:         utils.PropertySlug(body.Title, body.Location),
				Location:     body.Location,
				Currency:     body.Currency,
				NightlyPrice: body.NightlyPrice,
				Status:       status,
				InstantBook:  body.InstantBook,
				Source:       source,
				ExternalID:   externalId,
			}
			db := db.GetDb()
			if err := db.Create(&property).Error; err != nil {
				log.Printf("error creating property: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": property})
		}).
		GET("/account/properties", func(ctx *gin.Context) {
			providerId := ctx.GetUint("id")
			db := db.GetDb()
			var properties []models.Property
			err := db.
				Model(&models.Property{}).
				Where(&models.Property{ProviderID: providerId}).
				Order("created_at desc").
				Find(&properties).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": properties, "count": len(properties)})
		}).
		PATCH("/properties/:id/publish", func(ctx *gin.Context) {
			setPropertyStatus(ctx, types.PROPERTY_LISTED)
		}).
		PATCH("/properties/:id/unpublish", func(ctx *gin.Context) {
			setPropertyStatus(ctx, types.PROPERTY_UNLISTED)
		})
	return g
}

// setPropertyStatus flips a property between listed and unlisted. Only the
// owning host can do it; unlisting does not touch existing bookings.
func setPropertyStatus(ctx *gin.Context, status types.PropertyStatus) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	providerId := ctx.GetUint("id")
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var property models.Property
		err := tx.
			Where(&models.Property{ID: params.ID, ProviderID: providerId}).
			First(&property).
			Error
		if err != nil {
			return err
		}
		return tx.
			Model(&models.Property{}).
			Where(&models.Property{ID: property.ID}).
			Update("status", status).
			Error
	})
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"id": params.ID, "status": status}})
}
