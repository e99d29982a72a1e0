package main

import (
	"errors"
	"ets/src/common"
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"ets/src/utils"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func publicEventRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/events", func(ctx *gin.Context) {
			gdb := db.GetDb()
			var events []models.Event
			err := gdb.
				Model(&models.Event{}).
				Where(&models.Event{Status: types.EVENT_PUBLISHED}).
				Preload("TicketTypes").
				Order("starts_at asc").
				Find(&events).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			gdb := db.GetDb()
			var event models.Event
			if err := gdb.
				Model(&models.Event{}).
				Where("id = ?", params.ID).
				Preload("TicketTypes").
				First(&event).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			for i := range event.TicketTypes {
				free, sold, err := utils.GetTicketTypeSeats(event.TicketTypes[i].ID)
				if err != nil {
					continue
				}
				event.TicketTypes[i].Stats = &models.TicketTypeStats{
					TicketTypeID: event.TicketTypes[i].ID,
					Free:         free,
					Sold:         sold,
				}
			}
			common.Publish(&types.EventViewedFact{
				EventID:   event.ID,
				ProfileID: ctx.GetUint("profile"),
				ViewedAt:  time.Now(),
			})
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		GET("/types/:id/seats", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			free, sold, err := utils.GetTicketTypeSeats(params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			stats := models.TicketTypeStats{
				TicketTypeID: params.ID,
				Free:         free,
				Sold:         sold,
			}
			ctx.JSON(http.StatusOK, gin.H{"data": stats})
		})
	return apiv1
}

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			id, err := utils.CreateNewEvent(&body, userId)
			if err != nil {
				log.Printf("[CreateEvent] error: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		POST("/events/:id/types", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateTicketTypeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := utils.CreateNewTicketType(params.ID, &body)
			if err != nil {
				log.Printf("[CreateTicketType] error: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		POST("/events/:id/publish", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := utils.PublishEvent(params.ID); err != nil {
				log.Printf("[PublishEvent] error: %s\n", err.Error())
				ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
