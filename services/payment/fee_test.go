package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalWithFee(t *testing.T) {
	t.Run("Fee not covered charges the amount as-is", func(t *testing.T) {
		assert.Equal(t, int64(5000), TotalWithFee(MethodStripe, 5000, false))
		assert.Equal(t, int64(5000), TotalWithFee(MethodPayPal, 5000, false))
	})

	t.Run("Fifty pounds via stripe", func(t *testing.T) {
		assert.Equal(t, int64(5110), TotalWithFee(MethodStripe, 5000, true))
	})

	t.Run("Fifty pounds via paypal", func(t *testing.T) {
		assert.Equal(t, int64(5115), TotalWithFee(MethodPayPal, 5000, true))
	})

	t.Run("Rate part rounds to the nearest penny", func(t *testing.T) {
		// 1.4% of 1000 is 14, plus 20 fixed plus 20 stripe flat
		assert.Equal(t, int64(1054), TotalWithFee(MethodStripe, 1000, true))
		// 1.4% of 2500 is 35, plus 20 fixed plus 25 paypal flat
		assert.Equal(t, int64(2580), TotalWithFee(MethodPayPal, 2500, true))
	})
}
