package common_test

import (
	"context"
	"encoding/json"
	"errors"
	"ets/src/common"
	"ets/src/db"
	"ets/src/lib"
	"ets/src/models"
	"ets/src/types"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type SettlementTestSuite struct {
	suite.Suite
	DB    *gorm.DB
	rmock redismock.ClientMock

	user  models.User
	event models.Event
	tt    models.TicketType
}

func (s *SettlementTestSuite) SetupSuite() {
	d, err := gorm.Open(sqlite.Open("file:settlement_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	// sqlite allows one writer; a single conn queues concurrent
	// transactions instead of erroring out.
	sqlDB, err := d.DB()
	if err != nil {
		log.Fatalf("error getting sql db: %s", err.Error())
	}
	sqlDB.SetMaxOpenConns(1)
	db.NewDB(d)
	s.DB = d

	err = d.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Event{},
		&models.EventView{},
		&models.TicketType{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Ticket{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	lib.NewCheckoutSessionFunc(func(ctx context.Context, in *lib.CheckoutSessionInput) (*lib.CheckoutSessionOutput, error) {
		return &lib.CheckoutSessionOutput{
			SessionID: "cs_test_123",
			URL:       "https://checkout.test/cs_test_123",
		}, nil
	})

	s.user = models.User{Email: "attendee@example.com", Name: "Attendee", ActiveProfile: 1}
	if err := d.Create(&s.user).Error; err != nil {
		log.Fatalf("error creating user: %s", err.Error())
	}
	s.event = models.Event{
		Title:       "Test Conference",
		Slug:        "test-conference",
		Location:    "Test Hall",
		StartsAt:    time.Now().Add(24 * time.Hour),
		EndsAt:      time.Now().Add(48 * time.Hour),
		Status:      types.EVENT_PUBLISHED,
		OrganizerID: s.user.ID,
	}
	if err := d.Create(&s.event).Error; err != nil {
		log.Fatalf("error creating event: %s", err.Error())
	}
	s.tt = models.TicketType{
		EventID:  s.event.ID,
		Name:     "General Admission",
		Price:    2000,
		Currency: "usd",
		Quantity: 100,
	}
	if err := d.Create(&s.tt).Error; err != nil {
		log.Fatalf("error creating ticket type: %s", err.Error())
	}
}

func (s *SettlementTestSuite) SetupTest() {
	client, mock := redismock.NewClientMock()
	lib.NewRedisClient(client)
	s.rmock = mock
}

func (s *SettlementTestSuite) checkout(qty uint, amount int64) *common.CheckoutResult {
	s.rmock.Regexp().ExpectSetEx(`checkout:.*:selection`, `.*`, 15*time.Minute).SetVal("OK")
	result, err := common.CreateCheckout(context.Background(), &common.CheckoutInput{
		UserID:    s.user.ID,
		ProfileID: s.user.ActiveProfile,
		EventID:   s.event.ID,
		Items:     []types.CheckoutItem{{TicketTypeID: s.tt.ID, Qty: qty}},
		Amount:    amount,
		Currency:  "usd",
		Email:     s.user.Email,
	})
	assert.Nil(s.T(), err)
	assert.NotNil(s.T(), result)
	return result
}

func (s *SettlementTestSuite) selectionJSON(orderId uuid.UUID, qty uint, amount int64) string {
	sel := types.PendingSelection{
		OrderID:   orderId,
		EventID:   s.event.ID,
		UserID:    s.user.ID,
		ProfileID: s.user.ActiveProfile,
		Lines: []types.SelectionLine{
			{TicketTypeID: s.tt.ID, Qty: qty, UnitPrice: s.tt.Price},
		},
		Amount:   amount,
		Currency: "usd",
		Email:    s.user.Email,
	}
	b, _ := json.Marshal(&sel)
	return string(b)
}

func (s *SettlementTestSuite) TestCheckoutAndSettle() {
	result := s.checkout(2, 4000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	var payment models.Payment
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).First(&payment).Error)
	assert.Equal(s.T(), types.PAYMENT_CREATED, payment.Status)
	assert.Equal(s.T(), "cs_test_123", payment.TransactionID)

	s.rmock.ExpectGet(key).SetVal(s.selectionJSON(orderId, 2, 4000))
	s.rmock.ExpectDel(key).SetVal(1)
	settled, err := common.SettleOrder(context.Background(), orderId)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), 2, settled.TicketsIssued)
	assert.False(s.T(), settled.SelectionMissing)

	var order models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", orderId).First(&order).Error)
	assert.Equal(s.T(), types.ORDER_PAID, order.Status)
	assert.NotNil(s.T(), order.PaymentID)

	var items []models.OrderItem
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).Find(&items).Error)
	assert.Len(s.T(), items, 1)
	assert.Equal(s.T(), uint(2), items[0].Quantity)
	assert.Equal(s.T(), int64(2000), items[0].Price)

	var tickets []models.Ticket
	assert.Nil(s.T(), s.DB.Where("order_item_id = ?", items[0].ID).Find(&tickets).Error)
	assert.Len(s.T(), tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(s.T(), types.TICKET_ACTIVE, ticket.Status)
	}

	var lineTotal int64
	for _, item := range items {
		lineTotal += item.Price * int64(item.Quantity)
	}
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).First(&payment).Error)
	assert.Equal(s.T(), types.PAYMENT_SUCCEEDED, payment.Status)
	assert.Equal(s.T(), payment.Amount, lineTotal)

	// A duplicate callback observes the already-flipped payment row and
	// must not issue again.
	again, err := common.SettleOrder(context.Background(), orderId)
	assert.ErrorIs(s.T(), err, common.ErrAlreadySettled)
	assert.Equal(s.T(), settled.PaymentID, again.PaymentID)

	var count int64
	s.DB.Model(&models.Ticket{}).
		Joins("JOIN order_items ON order_items.id = tickets.order_item_id").
		Where("order_items.order_id = ?", orderId).
		Count(&count)
	assert.Equal(s.T(), int64(2), count)
}

func (s *SettlementTestSuite) TestAmountMismatchRejected() {
	_, err := common.CreateCheckout(context.Background(), &common.CheckoutInput{
		UserID:    s.user.ID,
		ProfileID: s.user.ActiveProfile,
		EventID:   s.event.ID,
		Items:     []types.CheckoutItem{{TicketTypeID: s.tt.ID, Qty: 2}},
		Amount:    3999,
		Currency:  "usd",
		Email:     s.user.Email,
	})
	assert.ErrorIs(s.T(), err, common.ErrAmountMismatch)
}

func (s *SettlementTestSuite) TestSettleWithExpiredSelection() {
	result := s.checkout(1, 2000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	s.rmock.ExpectGet(key).RedisNil()
	settled, err := common.SettleOrder(context.Background(), orderId)
	assert.Nil(s.T(), err)
	assert.True(s.T(), settled.SelectionMissing)
	assert.Zero(s.T(), settled.TicketsIssued)

	// The order stays paid; only issuance is skipped.
	var order models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", orderId).First(&order).Error)
	assert.Equal(s.T(), types.ORDER_PAID, order.Status)

	var items int64
	s.DB.Model(&models.OrderItem{}).Where("order_id = ?", orderId).Count(&items)
	assert.Zero(s.T(), items)
}

func (s *SettlementTestSuite) TestCancelFlow() {
	result := s.checkout(1, 2000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	s.rmock.ExpectDel(key).SetVal(1)
	cancelled, err := common.FailOrder(context.Background(), orderId, "user_cancelled")
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), "User canceled payment", cancelled.Reason)

	var order models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", orderId).First(&order).Error)
	assert.Equal(s.T(), types.ORDER_CANCELLED, order.Status)
	assert.NotNil(s.T(), order.CancelReason)
	assert.Equal(s.T(), "User canceled payment", *order.CancelReason)

	var payment models.Payment
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).First(&payment).Error)
	assert.Equal(s.T(), types.PAYMENT_CANCELLED, payment.Status)

	// Re-applying the cancellation is a no-op reporting the recorded reason.
	again, err := common.FailOrder(context.Background(), orderId, "payment_failed")
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), "User canceled payment", again.Reason)

	// A settle callback arriving after the cancel takes the conflict path.
	_, err = common.SettleOrder(context.Background(), orderId)
	assert.ErrorIs(s.T(), err, common.ErrAlreadyCancelled)
}

func (s *SettlementTestSuite) TestSettleCancelledOrderWithLivePayment() {
	// A failure callback can land in the window between the order insert
	// and the payment insert, cancelling the order while the payment row
	// still comes up created. A later settle must conflict, not pay out.
	reason := "Payment failed"
	order := models.Order{
		UserID:       s.user.ID,
		ProfileID:    s.user.ActiveProfile,
		EventID:      s.event.ID,
		Status:       types.ORDER_CANCELLED,
		CancelReason: &reason,
	}
	assert.Nil(s.T(), s.DB.Create(&order).Error)
	payment := models.Payment{
		OrderID:  order.ID,
		Amount:   2000,
		Currency: "usd",
		Status:   types.PAYMENT_CREATED,
	}
	assert.Nil(s.T(), s.DB.Create(&payment).Error)

	// The conflict fires before the cached selection is ever read, so a
	// surviving selection cannot trigger issuance either.
	result, err := common.SettleOrder(context.Background(), order.ID)
	assert.ErrorIs(s.T(), err, common.ErrAlreadyCancelled)
	assert.Equal(s.T(), payment.ID, result.PaymentID)

	// The conflict rolls the payment flip back and issues nothing.
	var p models.Payment
	assert.Nil(s.T(), s.DB.Where("order_id = ?", order.ID).First(&p).Error)
	assert.Equal(s.T(), types.PAYMENT_CREATED, p.Status)

	var current models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", order.ID).First(&current).Error)
	assert.Equal(s.T(), types.ORDER_CANCELLED, current.Status)

	var items int64
	s.DB.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	assert.Zero(s.T(), items)
}

func (s *SettlementTestSuite) TestConcurrentSettleCallbacks() {
	result := s.checkout(1, 2000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	// Only the winner reaches the cache; the loser is turned away by the
	// payment row before any redis call.
	s.rmock.ExpectGet(key).SetVal(s.selectionJSON(orderId, 1, 2000))
	s.rmock.ExpectDel(key).SetVal(1)

	errs := make([]error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = common.SettleOrder(context.Background(), orderId)
		}(i)
	}
	close(start)
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, common.ErrAlreadySettled):
			conflicted++
		default:
			s.T().Fatalf("unexpected settle error: %s", err.Error())
		}
	}
	assert.Equal(s.T(), 1, won)
	assert.Equal(s.T(), 1, conflicted)

	var payment models.Payment
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).First(&payment).Error)
	assert.Equal(s.T(), types.PAYMENT_SUCCEEDED, payment.Status)

	var count int64
	s.DB.Model(&models.Ticket{}).
		Joins("JOIN order_items ON order_items.id = tickets.order_item_id").
		Where("order_items.order_id = ?", orderId).
		Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *SettlementTestSuite) TestCancelPaidOrderRejected() {
	result := s.checkout(1, 2000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	s.rmock.ExpectGet(key).SetVal(s.selectionJSON(orderId, 1, 2000))
	s.rmock.ExpectDel(key).SetVal(1)
	_, err := common.SettleOrder(context.Background(), orderId)
	assert.Nil(s.T(), err)

	_, err = common.FailOrder(context.Background(), orderId, "payment_failed")
	assert.ErrorIs(s.T(), err, common.ErrOrderPaid)

	var order models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", orderId).First(&order).Error)
	assert.Equal(s.T(), types.ORDER_PAID, order.Status)
}

func (s *SettlementTestSuite) TestUnknownOrderAndReason() {
	_, err := common.SettleOrder(context.Background(), uuid.New())
	assert.ErrorIs(s.T(), err, common.ErrOrderNotFound)

	_, err = common.FailOrder(context.Background(), uuid.New(), "user_cancelled")
	assert.ErrorIs(s.T(), err, common.ErrOrderNotFound)

	_, err = common.FailOrder(context.Background(), uuid.New(), "changed_my_mind")
	assert.ErrorIs(s.T(), err, common.ErrUnknownReason)
}

func (s *SettlementTestSuite) TestCheckoutCapacity() {
	scarce := models.TicketType{
		EventID:  s.event.ID,
		Name:     "VIP",
		Price:    10000,
		Currency: "usd",
		Quantity: 1,
	}
	assert.Nil(s.T(), s.DB.Create(&scarce).Error)

	_, err := common.CreateCheckout(context.Background(), &common.CheckoutInput{
		UserID:    s.user.ID,
		ProfileID: s.user.ActiveProfile,
		EventID:   s.event.ID,
		Items:     []types.CheckoutItem{{TicketTypeID: scarce.ID, Qty: 2}},
		Amount:    20000,
		Currency:  "usd",
		Email:     s.user.Email,
	})
	assert.ErrorIs(s.T(), err, common.ErrSoldOut)
}

func (s *SettlementTestSuite) TestSweepStalePendingOrders() {
	result := s.checkout(1, 2000)
	orderId := uuid.MustParse(result.OrderID)
	key := fmt.Sprintf("checkout:%s:selection", orderId)

	stale := time.Now().Add(-48 * time.Hour)
	assert.Nil(s.T(), s.DB.
		Model(&models.Order{}).
		Where("id = ?", orderId).
		Update("created_at", stale).
		Error)

	// The sweep drops the cached selection like a failure callback would.
	s.rmock.ExpectDel(key).SetVal(1)
	swept, err := common.SweepStalePendingOrders(context.Background(), 24*time.Hour)
	assert.Nil(s.T(), err)
	assert.GreaterOrEqual(s.T(), swept, 1)
	assert.Nil(s.T(), s.rmock.ExpectationsWereMet())

	var order models.Order
	assert.Nil(s.T(), s.DB.Where("id = ?", orderId).First(&order).Error)
	assert.Equal(s.T(), types.ORDER_CANCELLED, order.Status)
	assert.Equal(s.T(), "Checkout session expired", *order.CancelReason)

	var payment models.Payment
	assert.Nil(s.T(), s.DB.Where("order_id = ?", orderId).First(&payment).Error)
	assert.Equal(s.T(), types.PAYMENT_CANCELLED, payment.Status)
}

func TestSettlementRunner(t *testing.T) {
	suite.Run(t, new(SettlementTestSuite))
}
