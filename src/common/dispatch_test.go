package common_test

import (
	"ets/src/common"
	"ets/src/db"
	"ets/src/models"
	"ets/src/types"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type DispatchTestSuite struct {
	suite.Suite
	DB *gorm.DB
}

func (s *DispatchTestSuite) SetupSuite() {
	d, err := gorm.Open(sqlite.Open("file:dispatch_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	db.NewDB(d)
	s.DB = d

	if err := d.AutoMigrate(&models.EventView{}); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
}

func (s *DispatchTestSuite) TestDeliversEventViewedFact() {
	d := common.NewDispatcher(2, 16)
	d.Start()
	common.ReplaceDispatcher(d)
	defer common.ReplaceDispatcher(nil)

	viewedAt := time.Now()
	common.Publish(&types.EventViewedFact{
		EventID:   42,
		ProfileID: 7,
		ViewedAt:  viewedAt,
	})
	d.Stop()

	var views []models.EventView
	assert.Nil(s.T(), s.DB.Where("event_id = ?", 42).Find(&views).Error)
	assert.Len(s.T(), views, 1)
	assert.Equal(s.T(), uint(7), views[0].ProfileID)
}

func (s *DispatchTestSuite) TestPublishNeverBlocks() {
	// No workers started, so the buffer fills and the overflow is
	// dropped instead of stalling the caller.
	d := common.NewDispatcher(1, 1)

	assert.True(s.T(), d.Publish(&types.EventViewedFact{EventID: 1}))
	assert.False(s.T(), d.Publish(&types.EventViewedFact{EventID: 2}))
}

func (s *DispatchTestSuite) TestUnknownFactIgnored() {
	d := common.NewDispatcher(1, 4)
	d.Start()

	assert.True(s.T(), d.Publish("not a fact"))
	d.Stop()
}

func TestDispatchRunner(t *testing.T) {
	suite.Run(t, new(DispatchTestSuite))
}
