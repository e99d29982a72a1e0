package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"ets/src/config"
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"io"
	"log"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func CreateNewEvent(params *types.CreateEventRequestBody, organizerId uint) (uint, error) {
	startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, params.StartsAt)
	if err != nil {
		return 0, err
	}
	endsAt, err := time.Parse(config.TIME_PARSE_FORMAT, params.EndsAt)
	if err != nil {
		return 0, err
	}
	status := types.EVENT_DRAFT
	if params.Publish {
		status = types.EVENT_PUBLISHED
	}
	event := models.Event{
		Title:       params.Title,
		Slug:        slug.Make(params.Title),
		Location:    params.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Status:      status,
		OrganizerID: organizerId,
	}
	if params.About != "" {
		event.About = &params.About
	}
	gdb := db.GetDb()
	err = gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&event).Error
	})
	if err != nil {
		log.Printf("Error creating Event: %s\n", err.Error())
		return 0, err
	}
	return event.ID, nil
}

func CreateNewTicketType(eventId uint, params *types.CreateTicketTypeRequestBody) (uint, error) {
	gdb := db.GetDb()
	var event models.Event
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", eventId).
		First(&event).
		Error; err != nil {
		return 0, err
	}
	tt := models.TicketType{
		EventID:     eventId,
		Name:        params.Name,
		Price:       params.Price,
		Currency:    params.Currency,
		Quantity:    params.Quantity,
		MaxPerOrder: params.MaxPerOrder,
	}
	if params.SaleStartsAt != nil {
		t, err := time.Parse(config.TIME_PARSE_FORMAT, *params.SaleStartsAt)
		if err != nil {
			return 0, err
		}
		tt.SaleStartsAt = &t
	}
	if params.SaleEndsAt != nil {
		t, err := time.Parse(config.TIME_PARSE_FORMAT, *params.SaleEndsAt)
		if err != nil {
			return 0, err
		}
		tt.SaleEndsAt = &t
	}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tt).Error
	})
	if err != nil {
		log.Printf("Error creating TicketType: %s\n", err.Error())
		return 0, err
	}
	return tt.ID, nil
}

func PublishEvent(id uint) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Event{}).
			Where("id = ? AND status = ?", id, types.EVENT_DRAFT).
			Update("status", types.EVENT_PUBLISHED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("event is not in draft status")
		}
		return nil
	})
}

// GetTicketTypeSeats returns the remaining and sold quantities for a
// ticket type, counting only units attached to paid orders.
func GetTicketTypeSeats(id uint) (free uint, sold uint, err error) {
	gdb := db.GetDb()
	var tt models.TicketType
	if err = gdb.
		Model(&models.TicketType{}).
		Where("id = ?", id).
		First(&tt).
		Error; err != nil {
		return
	}
	var count int64
	if err = gdb.
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.ticket_type_id = ? AND orders.status = ?", id, types.ORDER_PAID).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&count).
		Error; err != nil {
		return
	}
	sold = uint(count)
	if tt.Quantity > sold {
		free = tt.Quantity - sold
	}
	return
}

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	encodedString := hex.EncodeToString(cipherText)

	return encodedString, nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	decodedString := string(decryptedData)

	return &decodedString, nil
}
