package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"quickbites-dispatch/internal/domain"
)

func TestAssignment_BroadcastedTo(t *testing.T) {
	t.Parallel()

	in, out := uuid.New(), uuid.New()
	a := &domain.Assignment{BroadcastTo: []uuid.UUID{in, uuid.New()}}

	assert.True(t, a.BroadcastedTo(in))
	assert.False(t, a.BroadcastedTo(out))
	assert.False(t, (&domain.Assignment{}).BroadcastedTo(in))
}

func TestOrder_ShopOrderByID(t *testing.T) {
	t.Parallel()

	so := domain.ShopOrder{ID: uuid.New()}
	o := &domain.Order{ShopOrders: []domain.ShopOrder{so}}

	got := o.ShopOrderByID(so.ID)
	assert.NotNil(t, got)
	assert.Equal(t, so.ID, got.ID)
	assert.Nil(t, o.ShopOrderByID(uuid.New()))
}
