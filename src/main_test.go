package main

import (
	"encoding/json"
	"ets/src/db"
	"ets/src/middlewares"
	"ets/src/models"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB    *gorm.DB
	Token *string
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", eventDateTimeValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
		v.RegisterValidation("reasoncode", reasonCodeValidatorFunc)
	}

	d, err := gorm.Open(sqlite.Open("file:main_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	db.NewDB(d)
	s.DB = d

	err = d.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Event{},
		&models.TicketType{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Ticket{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	user := models.User{
		Email:         "someone@example.com",
		Name:          "Test User",
		ActiveProfile: 1,
	}
	if err := d.Create(&user).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	token, err := generateJWT(user.Email, user.ID, user.ActiveProfile)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.Token = &token
}

func (s *TestSuite) protectedRouter() *gin.Engine {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	checkoutHandlers(authorized)
	orderHandlers(authorized)
	eventHandlers(authorized)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestAuthRoutes() {
	router := setupRouter()
	guestAuthRoutes(router)

	w := httptest.NewRecorder()
	jbody := map[string]any{
		"email": "nobody@example.com",
	}
	sbody, _ := json.Marshal(&jbody)
	loginReq, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, loginReq)
	assert.Equal(s.T(), 404, w.Code)

	w = httptest.NewRecorder()
	registerReq, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, registerReq)
	assert.Equal(s.T(), 400, w.Code)

	w = httptest.NewRecorder()
	jbody["name"] = "New User"
	sbody, _ = json.Marshal(&jbody)
	registerReq, _ = http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, registerReq)
	assert.Equal(s.T(), 200, w.Code)

	w = httptest.NewRecorder()
	loginReq, _ = http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, loginReq)
	assert.Equal(s.T(), 200, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	assert.NotEmpty(s.T(), gjson.GetBytes(rbytes, "token").String())
}

func (s *TestSuite) TestProtectedRoutesRequireToken() {
	router := s.protectedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/orders", nil)
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), 401, w.Code)

	// A bare scheme with no token is rejected, not a server error.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer")
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), 401, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer ")
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), 401, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *s.Token))
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestCheckoutValidation() {
	router := s.protectedRouter()
	token := *s.Token

	s.Run("Should reject a checkout without items", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"event":    1,
			"amount":   4000,
			"currency": "usd",
			"email":    "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/checkout", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.NotEmpty(s.T(), gjson.GetBytes(rbytes, "error").String())
	})

	s.Run("Should reject a checkout for an unknown event", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"event":    99999,
			"items":    []map[string]any{{"ticket_type": 1, "qty": 1}},
			"amount":   2000,
			"currency": "usd",
			"email":    "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/checkout", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestFailCallbackValidation() {
	router := setupRouter()
	paymentCallbackRoutes(router)

	s.Run("Should reject an unknown reason code", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{"reason": "changed_my_mind"}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/payments/8e20ba55-07cc-4bfa-9b14-1f02cae023a3/fail", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a malformed order id", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{"reason": "user_cancelled"}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/payments/not-a-uuid/settle", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return 404 for an unknown order", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/payments/8e20ba55-07cc-4bfa-9b14-1f02cae023a3/settle", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestEventValidation() {
	router := s.protectedRouter()
	token := *s.Token

	w := httptest.NewRecorder()
	jbody := map[string]any{
		"title":     "past event",
		"location":  "somewhere",
		"starts_at": "2020-01-01 10:00:00 +00:00",
		"ends_at":   "2020-01-01 12:00:00 +00:00",
	}
	sbody, _ := json.Marshal(&jbody)
	req, _ := http.NewRequest("POST", "/api/v1/events", strings.NewReader(string(sbody)))
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	assert.NotEmpty(s.T(), gjson.GetBytes(rbytes, "error").String())
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
