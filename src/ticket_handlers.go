package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"ets/src/db"
	"ets/src/lib"
	"ets/src/models"
	"ets/src/types"
	"ets/src/utils"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
)

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/tickets", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var tickets []models.Ticket
			gdb := db.GetDb()
			if err := gdb.
				Where(&models.Ticket{UserID: userId}).
				Order("created_at desc").
				Find(&tickets).Error; err != nil {
				log.Printf("Error retrieving Tickets: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets})
		}).
		GET("/tickets/:id/code", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			filename := fmt.Sprintf("ticketcode_%d", params.ID)
			rd := lib.GetRedisClient()
			cached, err := rd.Get(context.Background(), filename).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("Error reading from cache: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			wd, err := os.Getwd()
			if err != nil {
				log.Printf("Could not read working directory: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			filepath := path.Join(wd, tempdir, fmt.Sprintf("%s.jpeg", filename))
			if cached != "" {
				ctx.FileAttachment(filepath, "eticket.jpeg")
				return
			}

			err = gdb.Transaction(func(tx *gorm.DB) error {
				var ticket models.Ticket
				if err := tx.
					Where(&models.Ticket{ID: params.ID, UserID: userId}).
					Preload("Event").
					First(&ticket).
					Error; err != nil {
					return err
				}
				now := time.Now()
				if now.After(ticket.Event.EndsAt) {
					err := errors.New("ticket is no longer valid")
					log.Printf("Error: %s\n", err.Error())
					return err
				}

				rawData := map[string]any{
					"ticketId": ticket.ID,
					"orderId":  ticket.OrderItemID,
					"eventId":  ticket.EventID,
				}
				rawBytes, _ := json.Marshal(rawData)
				rawText := string(rawBytes)

				keyEnv := os.Getenv("API_QRC_SECRET")
				key, err := hex.DecodeString(keyEnv)
				if err != nil {
					log.Printf("Could not read key from string: %s\n", err.Error())
					return err
				}
				encryptedMessage, err := utils.EncryptMessage(key, rawText)
				if err != nil {
					log.Printf("Error encrypting message: %s\n", err.Error())
					return err
				}
				qrc, err := qrcode.New(encryptedMessage)
				if err != nil {
					return err
				}
				if err = qrc.Save(filepath); err != nil {
					log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
					return err
				}
				rd.SetEx(context.Background(), filename, filepath, 2*time.Hour)
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, "eticket.jpeg")
		}).
		POST("/tickets/verify", func(ctx *gin.Context) {
			var body struct {
				Code string `json:"code" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			keyEnv := os.Getenv("API_QRC_SECRET")
			key, err := hex.DecodeString(keyEnv)
			if err != nil {
				log.Printf("Could not read key from string: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			decoded, err := utils.DecryptMessage(key, body.Code)
			if err != nil {
				log.Printf("Error decrypting code: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
				return
			}
			var payload struct {
				TicketID uint `json:"ticketId"`
				EventID  uint `json:"eventId"`
			}
			if err := json.Unmarshal([]byte(*decoded), &payload); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
				return
			}
			gdb := db.GetDb()
			var ticket models.Ticket
			if err := gdb.
				Where(&models.Ticket{ID: payload.TicketID, EventID: payload.EventID}).
				Preload("Event").
				First(&ticket).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
				return
			}
			if ticket.Status != types.TICKET_ACTIVE {
				ctx.JSON(http.StatusConflict, gin.H{"error": "Ticket is not active", "status": ticket.Status})
				return
			}
			if time.Now().After(ticket.Event.EndsAt) {
				ctx.JSON(http.StatusConflict, gin.H{"error": "Event has ended"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		})
	return g
}
