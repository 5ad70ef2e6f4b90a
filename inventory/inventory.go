package inventory

import (
	"github.com/jrsteele09/go-inventory-admin/crud"
)

// Collection endpoints, relative to the API base URL
const (
	EndpointProducts        = "/products"
	EndpointVendors         = "/vendors"
	EndpointInvoices        = "/invoices"
	EndpointCategoryRevenue = "/statistics/categories"
	EndpointVendorRevenue   = "/statistics/vendors"
	EndpointProductRevenue  = "/statistics/products"
)

type Product struct {
	EntityID       string  `json:"entityId" yaml:"entityId"`
	Name           string  `json:"name" yaml:"name"`
	VendorID       string  `json:"vendorId" yaml:"vendorId"`
	CategoryName   string  `json:"categoryName" yaml:"categoryName"`
	ImportPrice    float64 `json:"importPrice" yaml:"importPrice"`
	SalePrice      float64 `json:"salePrice" yaml:"salePrice"`
	VAT            float64 `json:"vat" yaml:"vat"`
	Amount         float64 `json:"amount" yaml:"amount"`
	EarliestExpiry string  `json:"earliestExpiry" yaml:"earliestExpiry"` // ISO date
}

type Vendor struct {
	EntityID string `json:"entityId" yaml:"entityId"`
	Name     string `json:"name" yaml:"name"`
}

type Invoice struct {
	EntityID  string  `json:"entityId" yaml:"entityId"`
	CreatedAt string  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt string  `json:"updatedAt" yaml:"updatedAt"`
	Total     float64 `json:"total" yaml:"total"`
	Tax       float64 `json:"tax" yaml:"tax"`
}

// Revenue statistics. Only admins may read them.

type CategoryRevenueStat struct {
	Name         string  `json:"name" yaml:"name"`
	TotalRevenue float64 `json:"totalRevenue" yaml:"totalRevenue"`
}

type VendorRevenueStat struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	TotalRevenue float64 `json:"totalRevenue" yaml:"totalRevenue"`
}

type ProductRevenueStat struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	VendorName   string  `json:"vendorName" yaml:"vendorName"`
	CategoryName string  `json:"categoryName" yaml:"categoryName"`
	Amount       float64 `json:"amount" yaml:"amount"`
	TotalRevenue float64 `json:"totalRevenue" yaml:"totalRevenue"`
}

func NewProducts(client crud.Requester, opts ...crud.Option) *crud.Resource[Product] {
	return crud.New(client, EndpointProducts, func(p Product) string { return p.EntityID }, opts...)
}

func NewVendors(client crud.Requester, opts ...crud.Option) *crud.Resource[Vendor] {
	return crud.New(client, EndpointVendors, func(v Vendor) string { return v.EntityID }, opts...)
}

func NewInvoices(client crud.Requester, opts ...crud.Option) *crud.Resource[Invoice] {
	return crud.New(client, EndpointInvoices, func(i Invoice) string { return i.EntityID }, opts...)
}

func NewCategoryRevenue(client crud.Requester, opts ...crud.Option) *crud.Resource[CategoryRevenueStat] {
	return crud.New[CategoryRevenueStat](client, EndpointCategoryRevenue, nil, opts...)
}

func NewVendorRevenue(client crud.Requester, opts ...crud.Option) *crud.Resource[VendorRevenueStat] {
	return crud.New(client, EndpointVendorRevenue, func(s VendorRevenueStat) string { return s.ID }, opts...)
}

func NewProductRevenue(client crud.Requester, opts ...crud.Option) *crud.Resource[ProductRevenueStat] {
	return crud.New(client, EndpointProductRevenue, func(s ProductRevenueStat) string { return s.ID }, opts...)
}
