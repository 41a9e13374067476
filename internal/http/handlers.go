package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"vendite/internal/core"
	"vendite/internal/ledger"
	"vendite/internal/storage"
)

// Amounts cross the wire as decimal strings ("50.00"); cents never leak
// into the API. Dates are ISO-8601 text, matching the stored form.

type customerView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at"`
}

type saleView struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	Item        string `json:"item"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	TotalPrice  string `json:"total_price"`
	SaleDate    string `json:"sale_date"`
	Paid        string `json:"paid"`
	Remaining   string `json:"remaining"`
}

type saleWithCustomerView struct {
	saleView
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	CustomerLocation string `json:"customer_location"`
}

type paymentView struct {
	ID          int64  `json:"id"`
	SaleID      int64  `json:"sale_id"`
	Amount      string `json:"amount"`
	PaymentDate string `json:"payment_date"`
	Note        string `json:"note"`
}

func toCustomerView(c core.Customer) customerView {
	return customerView{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Location:  c.Location,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toSaleView(s core.Sale) saleView {
	return saleView{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		Item:        s.Item,
		Category:    s.Category,
		SubCategory: s.SubCategory,
		TotalPrice:  s.TotalPrice.String(),
		SaleDate:    s.SaleDate.String(),
		Paid:        s.Paid.String(),
		Remaining:   s.Remaining.String(),
	}
}

func toSaleWithCustomerView(s storage.SaleWithCustomer) saleWithCustomerView {
	return saleWithCustomerView{
		saleView:         toSaleView(s.Sale),
		CustomerName:     s.CustomerName,
		CustomerPhone:    s.CustomerPhone,
		CustomerLocation: s.CustomerLocation,
	}
}

func toPaymentView(p core.Payment) paymentView {
	return paymentView{
		ID:          p.ID,
		SaleID:      p.SaleID,
		Amount:      p.Amount.String(),
		PaymentDate: p.PaymentDate.String(),
		Note:        p.Note,
	}
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"categories": s.ledger.Catalog().All()})
}

type createCustomerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := s.ledger.CreateCustomer(r.Context(), req.Name, req.Phone, req.Location)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"customer": toCustomerView(customer)})
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.ListCustomers(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]customerView, len(customers))
	for i, c := range customers {
		views[i] = toCustomerView(c)
	}
	respondJSON(w, http.StatusOK, map[string]any{"customers": views})
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := s.ledger.GetCustomer(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	sales := make([]saleView, len(detail.Sales))
	for i, sale := range detail.Sales {
		sales[i] = toSaleView(sale)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"customer": toCustomerView(detail.Customer),
		"sales":    sales,
		"summary": map[string]string{
			"total_purchased": detail.TotalPurchased.String(),
			"total_paid":      detail.TotalPaid.String(),
			"total_remaining": detail.TotalRemaining.String(),
		},
	})
}

type createSaleRequest struct {
	CustomerID  int64       `json:"customer_id"`
	Item        string      `json:"item"`
	Category    string      `json:"category"`
	SubCategory string      `json:"sub_category"`
	TotalPrice  json.Number `json:"total_price"`
	SaleDate    string      `json:"sale_date"`
	Paid        json.Number `json:"paid"`
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	totalPrice, err := parseMoney(req.TotalPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid total_price")
		return
	}
	initialPaid, err := parseMoney(req.Paid)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid paid amount")
		return
	}
	saleDate, err := core.ParseDate(req.SaleDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid sale_date, expected YYYY-MM-DD")
		return
	}

	sale, err := s.ledger.CreateSale(r.Context(), ledger.CreateSaleInput{
		CustomerID:  req.CustomerID,
		Item:        req.Item,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		TotalPrice:  totalPrice,
		SaleDate:    saleDate,
		InitialPaid: initialPaid,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"sale": toSaleView(sale)})
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.ledger.ListSales(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]saleWithCustomerView, len(sales))
	for i, sale := range sales {
		views[i] = toSaleWithCustomerView(sale)
	}
	respondJSON(w, http.StatusOK, map[string]any{"sales": views})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := s.ledger.GetSale(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	payments := make([]paymentView, len(detail.Payments))
	for i, p := range detail.Payments {
		payments[i] = toPaymentView(p)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sale":     toSaleWithCustomerView(detail.Sale),
		"payments": payments,
	})
}

type postPaymentRequest struct {
	SaleID      int64       `json:"sale_id"`
	Amount      json.Number `json:"amount"`
	PaymentDate string      `json:"payment_date"`
	Note        string      `json:"note"`
}

func (s *Server) handlePostPayment(w http.ResponseWriter, r *http.Request) {
	var req postPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid amount")
		return
	}
	paymentDate, err := core.ParseDate(req.PaymentDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid payment_date, expected YYYY-MM-DD")
		return
	}

	payment, sale, err := s.ledger.PostPayment(r.Context(), req.SaleID, amount, paymentDate, req.Note)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"payment":   toPaymentView(payment),
		"remaining": sale.Remaining.String(),
	})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 {
		respondError(w, http.StatusBadRequest, "validation", "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		respondError(w, http.StatusBadRequest, "validation", "invalid month")
		return
	}

	summary, err := s.reports.MonthlySummary(r.Context(), year, month)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"month":               summary.YearMonth(),
		"payments_received":   summary.PaymentsReceived.String(),
		"payments_count":      summary.PaymentsCount,
		"new_sales_total":     summary.NewSalesTotal.String(),
		"new_sales_count":     summary.NewSalesCount,
		"outstanding_balance": summary.OutstandingBalance.String(),
	})
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	outstanding, err := s.reports.Outstanding(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]saleWithCustomerView, len(outstanding.Sales))
	for i, sale := range outstanding.Sales {
		views[i] = toSaleWithCustomerView(sale)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"outstanding_sales": views,
		"total_outstanding": outstanding.Total.String(),
	})
}

// decodeBody decodes a JSON request body, responding with 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

// parseMoney converts an optional decimal JSON number to Money.
// The zero value (field absent) parses as zero cents.
func parseMoney(n json.Number) (core.Money, error) {
	if n.String() == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(n.String())
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "validation", "invalid "+name)
		return 0, false
	}
	return id, true
}
