package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/models"
)

// ProductRevenue is a catalog entry plus what it earned across the given
// orders.
type ProductRevenue struct {
	Product models.Product  `json:"product"`
	Units   int             `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProducts ranks catalog products by the revenue their order lines
// produced, highest first. Order lines referencing a product id missing from
// the catalog are skipped. Ties break on product id for a stable ranking.
func TopProducts(products []models.Product, orders []models.Order, n int) []ProductRevenue {
	if n <= 0 {
		return nil
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	revenue := map[string]*ProductRevenue{}
	for _, order := range orders {
		for _, line := range order.Items {
			product, ok := byID[line.Product.ID]
			if !ok {
				continue
			}
			entry, ok := revenue[product.ID]
			if !ok {
				entry = &ProductRevenue{Product: product, Revenue: decimal.Zero}
				revenue[product.ID] = entry
			}
			entry.Units += line.Quantity
			entry.Revenue = entry.Revenue.Add(line.LineTotal())
		}
	}

	ranked := make([]ProductRevenue, 0, len(revenue))
	for _, entry := range revenue {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Revenue.Equal(ranked[j].Revenue) {
			return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
		}
		return ranked[i].Product.ID < ranked[j].Product.ID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
