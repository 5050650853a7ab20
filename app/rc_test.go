package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/coschain/hivebridge/iservices/mock_iservices"
	"github.com/coschain/hivebridge/utils"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetEstimatedRCCost(t *testing.T) {
	assert.EqualValues(t, 1000, GetEstimatedRCCost(0))
	assert.EqualValues(t, 1000, GetEstimatedRCCost(833))
	assert.EqualValues(t, 1001, GetEstimatedRCCost(834))
	assert.EqualValues(t, 12000, GetEstimatedRCCost(10000))
}

func TestCanUserPost_Primary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	guard := NewResourceCreditGuard(&fakeRCHelper{bar: &utils.Manabar{CurrentMana: 300, MaxMana: 1000, LastUpdate: testNow}},
		mock_iservices.NewMockINodeReader(ctrl), utils.FixedClock{At: testNow}, quietLog())

	st := guard.CanUserPost(context.Background(), "alice")
	assert.True(t, st.CanPost)
	assert.InDelta(t, 30, st.RCPercentage, 0.0001)
}

func TestCanUserPost_FallbackRegenerates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	reader := mock_iservices.NewMockINodeReader(ctrl)
	guard := NewResourceCreditGuard(&fakeRCHelper{err: errors.New("rc_api disabled")}, reader,
		utils.FixedClock{At: testNow}, quietLog())

	// 1% one day ago regenerates to 21%
	dayAgo := testNow.Unix() - 24*3600
	reader.EXPECT().Call(gomock.Any(), "condenser_api.find_rc_accounts", []interface{}{[]string{"alice"}}).
		Return(json.RawMessage(fmt.Sprintf(`[{"account":"alice","rc_manabar":{"current_mana":"10000","last_update_time":%d},"max_rc":"1000000"}]`, dayAgo)), nil)

	st := guard.CanUserPost(context.Background(), "alice")
	assert.True(t, st.CanPost)
	assert.InDelta(t, 21, st.RCPercentage, 0.0001)
}

func TestCanUserPost_FailClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	reader := mock_iservices.NewMockINodeReader(ctrl)
	guard := NewResourceCreditGuard(&fakeRCHelper{err: errors.New("helper down")}, reader,
		utils.FixedClock{At: testNow}, quietLog())

	reader.EXPECT().Call(gomock.Any(), "condenser_api.find_rc_accounts", gomock.Any()).
		Return(nil, errors.New("node down"))
	st := guard.CanUserPost(context.Background(), "alice")
	assert.False(t, st.CanPost)
	assert.NotEmpty(t, st.Message)
}

func TestCanUserPost_BelowThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	guard := NewResourceCreditGuard(&fakeRCHelper{bar: &utils.Manabar{CurrentMana: 40, MaxMana: 1000, LastUpdate: testNow}},
		mock_iservices.NewMockINodeReader(ctrl), utils.FixedClock{At: testNow}, quietLog())

	st := guard.CanUserPost(context.Background(), "alice")
	assert.False(t, st.CanPost)
	assert.InDelta(t, 4, st.RCPercentage, 0.0001)
}

func TestRCHelper_FindRCAccounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	reader := mock_iservices.NewMockINodeReader(ctrl)

	reader.EXPECT().Call(gomock.Any(), "rc_api.find_rc_accounts", map[string]interface{}{"accounts": []string{"alice"}}).
		Return(json.RawMessage(`{"rc_accounts":[{"account":"alice","rc_manabar":{"current_mana":"500","last_update_time":1700000000},"max_rc":"1000"}]}`), nil)
	bar, err := NewRCHelper(reader).GetRCMana(context.Background(), "alice")
	assert.NoError(t, err)
	assert.EqualValues(t, 500, bar.CurrentMana)
	assert.EqualValues(t, 1000, bar.MaxMana)

	reader.EXPECT().Call(gomock.Any(), "rc_api.find_rc_accounts", gomock.Any()).
		Return(json.RawMessage(`{"rc_accounts":[]}`), nil)
	_, err = NewRCHelper(reader).GetRCMana(context.Background(), "alice")
	assert.Error(t, err)
}
