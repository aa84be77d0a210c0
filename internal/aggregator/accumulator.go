package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	commercedomain "github.com/commercepulse/commercepulse/internal/commerce/domain"
	metricsdomain "github.com/commercepulse/commercepulse/internal/metrics/domain"
)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// PartitionInput is everything the fold needs for one partition: the
// partition's orders and items, the tenant's cost catalog, and the two
// externally supplied figures that pass through untouched.
type PartitionInput struct {
	Orders []commercedomain.UnifiedOrder
	Items  []commercedomain.UnifiedOrderItem
	// UnitCosts maps external product id to catalog cost. Items whose
	// product is absent contribute zero cost and flag the row.
	UnitCosts      map[string]decimal.Decimal
	Products       map[string]commercedomain.UnifiedProduct
	AdSpend        decimal.Decimal
	InventoryValue decimal.Decimal
}

// Accumulate folds one partition's input into a daily rollup value. No side
// effects: id and timestamps are left zero for the writer to fill. Money is
// accumulated exactly and rounded half-even to 2 decimal places only at
// output; rates to 4.
func Accumulate(p Partition, in PartitionInput) metricsdomain.UnifiedMetricsDaily {
	var (
		totalSales = zero
		netSales   = zero
		discounts  = zero
		taxes      = zero
		refunds    = zero
		totalFees  = zero
		fulfilled  int64
	)
	for _, o := range in.Orders {
		totalSales = totalSales.Add(o.GrossSales)
		netSales = netSales.Add(o.NetSales)
		discounts = discounts.Add(o.DiscountAmount)
		taxes = taxes.Add(o.TotalTax)
		refunds = refunds.Add(o.RefundAmount)
		totalFees = totalFees.Add(o.TotalFees)
		if o.FulfillmentStatus == "fulfilled" {
			fulfilled++
		}
	}

	flags := map[string]any{}
	units := zero
	costOfGoods := zero
	for _, item := range in.Items {
		units = units.Add(item.Quantity)
		cost, ok := in.UnitCosts[item.ProductExternalID]
		if !ok {
			flags[metricsdomain.FlagIncompleteCost] = true
			continue
		}
		costOfGoods = costOfGoods.Add(item.Quantity.Mul(cost))
	}

	totalOrders := int64(len(in.Orders))
	grossProfit := netSales.Sub(costOfGoods)
	netProfit := grossProfit.Sub(in.AdSpend).Sub(totalFees)

	aov := zero
	fulfillmentRate := zero
	if totalOrders > 0 {
		n := decimal.NewFromInt(totalOrders)
		aov = netSales.Div(n)
		fulfillmentRate = decimal.NewFromInt(fulfilled).Div(n)
	}

	refundRate := zero
	if !netSales.IsZero() {
		refundRate = refunds.Div(netSales)
		if refundRate.LessThan(zero) || refundRate.GreaterThan(one) {
			flags[metricsdomain.FlagRefundRateOutOfRange] = true
			if refundRate.GreaterThan(one) {
				flags[metricsdomain.FlagRefundsExceedSales] = true
			}
			refundRate = clamp01(refundRate)
		}
	}

	row := metricsdomain.UnifiedMetricsDaily{
		TenantID:        p.TenantID,
		Date:            p.Date,
		Platform:        p.Platform,
		TotalOrders:     totalOrders,
		TotalSales:      totalSales.RoundBank(2),
		NetSales:        netSales.RoundBank(2),
		Discounts:       discounts.RoundBank(2),
		Taxes:           taxes.RoundBank(2),
		Refunds:         refunds.RoundBank(2),
		UnitsSold:       units.RoundBank(0).IntPart(),
		AdSpend:         in.AdSpend.RoundBank(2),
		InventoryValue:  in.InventoryValue.RoundBank(2),
		GrossProfit:     grossProfit.RoundBank(2),
		NetProfit:       netProfit.RoundBank(2),
		AOV:             aov.RoundBank(2),
		FulfillmentRate: fulfillmentRate.RoundBank(4),
		RefundRate:      refundRate.RoundBank(4),
	}
	if len(flags) > 0 {
		row.Flags = datatypes.JSONMap(flags)
	}
	return row
}

// AccumulateProducts folds the same partition input into per-product daily
// rollups. Items without an external product id have nothing to key on and
// are skipped. Output is ordered by product id for deterministic writes.
func AccumulateProducts(p Partition, in PartitionInput) []metricsdomain.ProductMetrics {
	type bucket struct {
		revenue decimal.Decimal
		units   decimal.Decimal
		sku     string
	}
	buckets := map[string]*bucket{}
	for _, item := range in.Items {
		if item.ProductExternalID == "" {
			continue
		}
		b, ok := buckets[item.ProductExternalID]
		if !ok {
			b = &bucket{revenue: zero, units: zero}
			buckets[item.ProductExternalID] = b
		}
		b.revenue = b.revenue.Add(item.Total)
		b.units = b.units.Add(item.Quantity)
		if b.sku == "" {
			b.sku = item.SKU
		}
	}

	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]metricsdomain.ProductMetrics, 0, len(ids))
	for _, id := range ids {
		b := buckets[id]
		row := metricsdomain.ProductMetrics{
			TenantID:          p.TenantID,
			ProductExternalID: id,
			SKU:               b.sku,
			Date:              p.Date,
			Revenue:           b.revenue.RoundBank(2),
			UnitsSold:         b.units.RoundBank(0).IntPart(),
		}
		if product, ok := in.Products[id]; ok {
			if row.SKU == "" {
				row.SKU = product.SKU
			}
			row.ConversionRate = product.ConversionRate
			row.BuyBoxPercent = product.BuyBoxPercent
		}
		rows = append(rows, row)
	}
	return rows
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(zero) {
		return zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}
