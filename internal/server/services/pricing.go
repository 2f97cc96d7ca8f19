package services

import (
	"math"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/server/models"
)

// UnitPrice returns (base - base*discount/100) * multiplier in minor units.
// The multiplier is in hundredths, so the exact value is
// base*(100-discount)*multiplier/10000; a fractional minor unit is rounded
// half up.
func UnitPrice(base, discount int64, m models.Multiplier) (int64, error) {
	if base < 0 || discount < 0 || discount > 100 || m <= 0 {
		return 0, common.ErrInvalidArgument
	}

	factor := (100 - discount) * int64(m)
	if factor == 0 || base == 0 {
		return 0, nil
	}
	if base > (math.MaxInt64-5000)/factor {
		return 0, common.ErrInvalidArgument
	}

	return (base*factor + 5000) / 10000, nil
}

// LinePrice is UnitPrice times quantity.
func LinePrice(item *models.CatalogItem, period models.Period, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, common.ErrInvalidArgument
	}

	unit, err := UnitPrice(item.Price, item.Discount, period.Multiplier)
	if err != nil {
		return 0, err
	}
	if unit != 0 && quantity > math.MaxInt64/unit {
		return 0, common.ErrInvalidArgument
	}

	return unit * quantity, nil
}

func addPrice(total, price int64) (int64, error) {
	if total > math.MaxInt64-price {
		return 0, common.ErrInvalidArgument
	}
	return total + price, nil
}
