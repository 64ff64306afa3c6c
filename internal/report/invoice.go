package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// InvoiceItem 发票行
type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Total 行金额
func (i InvoiceItem) Total() float64 {
	return float64(i.Quantity) * i.Price
}

// InvoiceRequest 发票参数，Items 非空时按多行发票组装
type InvoiceRequest struct {
	InvoiceNumber string        `json:"invoiceNumber"`
	ClientName    string        `json:"clientName"`
	ClientAddress string        `json:"clientAddress"`
	Date          string        `json:"date"`
	ProductName   string        `json:"productName,omitempty"`
	Quantity      int           `json:"quantity,omitempty"`
	Price         float64       `json:"price,omitempty"`
	Total         float64       `json:"total,omitempty"`
	Items         []InvoiceItem `json:"items,omitempty"`
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func rubles(v float64) string {
	return fmt.Sprintf("%.2f руб.", v)
}

func (b *builder) invoiceHeader(req InvoiceRequest) {
	b.text("invoiceNumber", req.InvoiceNumber)
	b.insert("clientName", req.ClientName)
	b.insert("clientAddress", req.ClientAddress)
	b.insert("дата", req.Date)
}

func invoiceFilename(number string) string {
	return fmt.Sprintf("invoice-%s.pptx", number)
}

// Invoice 组装单行发票，Items 非空时转为多行发票
func Invoice(ctx context.Context, req InvoiceRequest) *Report {
	if len(req.Items) > 0 {
		return InvoiceMultipleItems(ctx, req)
	}
	zerolog.Ctx(ctx).Info().Str("invoice", req.InvoiceNumber).Str("client", req.ClientName).Msg("生成发票")

	b := &builder{}
	b.invoiceHeader(req)
	b.insert("productName", req.ProductName)
	b.insert("количество", req.Quantity)
	b.insert("цена", money(req.Price))
	b.insert("итого", rubles(req.Total))
	return b.build(InvoiceTemplate, invoiceFilename(req.InvoiceNumber))
}

// InvoiceMultipleItems 组装多行发票，第 N 行对应 item{N}Name 等键，合计写入 grandTotal
func InvoiceMultipleItems(ctx context.Context, req InvoiceRequest) *Report {
	zerolog.Ctx(ctx).Info().Str("invoice", req.InvoiceNumber).Int("items", len(req.Items)).Msg("生成多行发票")

	b := &builder{}
	b.invoiceHeader(req)

	var total float64
	for i, item := range req.Items {
		n := i + 1
		total += item.Total()
		b.insert(fmt.Sprintf("item%dName", n), item.Name)
		b.insert(fmt.Sprintf("item%dQuantity", n), item.Quantity)
		b.insert(fmt.Sprintf("item%dPrice", n), money(item.Price))
		b.insert(fmt.Sprintf("item%dTotal", n), money(item.Total()))
	}
	b.insert("grandTotal", rubles(total))
	return b.build(InvoiceTemplate, invoiceFilename(req.InvoiceNumber))
}
