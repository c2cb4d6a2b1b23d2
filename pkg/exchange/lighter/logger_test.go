package lighter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeromicro/go-zero/core/logx"
)

func TestMsgWithFields(t *testing.T) {
	assert.Equal(t, "plain", msgWithFields("plain", nil))
	assert.Equal(t, "sent | code=200 nonce=4 tx_type=Withdraw",
		msgWithFields("sent", Fields{"tx_type": "Withdraw", "nonce": 4, "code": 200}))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, uint32(logx.DebugLevel), parseLevel("DEBUG"))
	assert.Equal(t, uint32(logx.ErrorLevel), parseLevel(" error "))
	assert.Equal(t, uint32(logx.SevereLevel), parseLevel("fatal"))
	assert.Equal(t, uint32(logx.InfoLevel), parseLevel("verbose"))
}
