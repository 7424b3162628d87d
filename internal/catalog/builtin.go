package catalog

import "github.com/hiepdl65/reportbuilder/internal/ir"

// Builtin returns the demo catalog used when no catalog directory or
// database is configured.
func Builtin() *Catalog {
	return New(
		[]ir.Table{
			{ID: "1", Name: "orders", Alias: "o", Schema: "public"},
			{ID: "2", Name: "customers", Alias: "c", Schema: "public"},
			{ID: "3", Name: "products", Alias: "p", Schema: "public"},
			{ID: "4", Name: "order_items", Alias: "oi", Schema: "public"},
			{ID: "5", Name: "categories", Alias: "cat", Schema: "public"},
		},
		map[string][]string{
			"orders":      {"id", "order_number", "customer_id", "total_amount", "created_at", "status"},
			"customers":   {"id", "name", "email", "phone", "address", "created_at"},
			"products":    {"id", "name", "sku", "price", "category_id", "stock_quantity"},
			"order_items": {"id", "order_id", "product_id", "quantity", "unit_price", "total_price"},
			"categories":  {"id", "name", "description", "parent_id"},
		},
	)
}
