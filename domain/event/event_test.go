package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "new", Name(NewOrder{ID: 1}))
	assert.Equal(t, "market", Name(MarketOrder{}))
	assert.Equal(t, "cancel", Name(CancelOrder{}))
	assert.Equal(t, "modify", Name(ModifyOrder{}))
	assert.Equal(t, "shutdown", Name(Shutdown{}))
	assert.Equal(t, "unknown", Name(nil))
}
