package models

// Requests for product CRUD and discovery endpoints. Defined in domain for
// consistency and reuse.

// CreateProductRequest adds a product to tracking. Title doubles as the
// search query; SKU and URL are optional and backfilled from the first
// successful price check when omitted.
type CreateProductRequest struct {
	SKU           string  `json:"sku"`
	Title         string  `json:"title" validate:"required"`
	URL           string  `json:"url" validate:"omitempty,url"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
	Price         float64 `json:"price" validate:"gte=0"`
	TargetPrice   float64 `json:"target_price" validate:"gte=0"`
	Currency      string  `json:"currency" default:"USD" validate:"len=3"`
	CheckInterval string  `json:"check_interval" default:"1h" validate:"oneof=5m 15m 30m 1h 6h 12h 24h"`
	Priority      int     `json:"priority" default:"1" validate:"gte=1,lte=5"`
	NotifyEmail   bool    `json:"notify_email"`
	NotifySlack   bool    `json:"notify_slack"`
	NotifyDesktop bool    `json:"notify_desktop" default:"true"`
}

type UpdateProductRequest struct {
	ID            string   `param:"id" validate:"required"`
	Title         *string  `json:"title"`
	TargetPrice   *float64 `json:"target_price" validate:"omitempty,gte=0"`
	CheckInterval *string  `json:"check_interval" validate:"omitempty,oneof=5m 15m 30m 1h 6h 12h 24h"`
	Priority      *int     `json:"priority" validate:"omitempty,gte=1,lte=5"`
	IsActive      *bool    `json:"is_active"`
	NotifyEmail   *bool    `json:"notify_email"`
	NotifySlack   *bool    `json:"notify_slack"`
	NotifyDesktop *bool    `json:"notify_desktop"`
}

type ListProductsRequest struct {
	ActiveOnly bool `query:"active_only" json:"active_only"`
	Limit      int  `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Offset     int  `query:"offset" json:"offset" validate:"gte=0"`
}

type SearchRequest struct {
	Query string `query:"q" json:"q" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type DealsRequest struct {
	MinDiscount float64 `query:"min_discount" json:"min_discount" default:"10" validate:"gte=0,lte=100"`
	Limit       int     `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

// ProductIDRequest covers endpoints that take only the product path param.
type ProductIDRequest struct {
	ID string `param:"id" validate:"required"`
}

type RecentAlertsRequest struct {
	ProductID string `param:"id" validate:"required"`
	Limit     int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type TestNotificationRequest struct {
	Channel string `json:"channel" form:"channel" default:"all" validate:"oneof=all slack email desktop"`
}
