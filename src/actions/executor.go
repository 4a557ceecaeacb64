// Package actions dispatches composed actions to the order store and shapes
// the outcome into a payload the client can render. Store failures never
// reach the dialogue: they degrade to labelled demo data.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/store"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

// Canonical action names
const (
	SearchOrders    = "search_orders"
	CreateOrder     = "create_order"
	SearchCustomers = "search_customers"
	GeneratePDF     = "generate_pdf"
	EndConversation = "end_conversation"
	ShowHelp        = "show_help"
)

// Result types
const (
	TypeOrdersFound       = "ORDERS_FOUND"
	TypeOrderCreated      = "ORDER_CREATED"
	TypeOrderIncomplete   = "ORDER_INCOMPLETE"
	TypeCustomersFound    = "CUSTOMERS_FOUND"
	TypePDFRequested      = "PDF_REQUESTED"
	TypeConversationEnded = "CONVERSATION_ENDED"
	TypeHelp              = "HELP"
	TypeUnknownAction     = "UNKNOWN_ACTION"
)

// Parameter keys read from the intent parameters
const (
	paramCustomerName = "customerName"
	paramGlassType    = "glassType"
	paramQuantity     = "quantity"
	paramDimensions   = "dimensions"
	paramThickness    = "thickness"
	paramStatus       = "status"
	paramOrderNumber  = "orderNumber"
	paramDateRange    = "dateRange"
	paramNotes        = "notes"
)

// Result is the normalized outcome of one action
type Result struct {
	Action     string           `json:"action"`
	Type       string           `json:"type"`
	StatusCode int              `json:"statusCode"`
	Orders     []store.Order    `json:"orders,omitempty"`
	Customers  []store.Customer `json:"customers,omitempty"`
	Order      *store.Order     `json:"order,omitempty"`
	Demo       bool             `json:"demo,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// Executor runs actions against a store. A nil store is treated as an
// outage.
type Executor struct {
	store   store.Store
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// NewExecutor creates an executor. timeout bounds each store call; zero
// means no bound beyond the caller's context.
func NewExecutor(s store.Store, timeout time.Duration) *Executor {
	return &Executor{
		store:   s,
		timeout: timeout,
		now:     time.Now,
		log:     logger.WithPrefix("ActionExecutor"),
	}
}

// WithClock replaces the clock used to resolve date ranges
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Execute runs action with params. It never returns an error.
func (e *Executor) Execute(ctx context.Context, action string, params map[string]any) Result {
	if params == nil {
		params = map[string]any{}
	}
	switch action {
	case SearchOrders:
		return e.searchOrders(ctx, params)
	case CreateOrder:
		return e.createOrder(ctx, params)
	case SearchCustomers:
		return e.searchCustomers(ctx, params)
	case GeneratePDF:
		return e.generatePDF(ctx, params)
	case EndConversation:
		return Result{Action: action, Type: TypeConversationEnded, StatusCode: 200}
	case ShowHelp:
		return Result{Action: action, Type: TypeHelp, StatusCode: 200}
	default:
		e.log.Warn("unknown action %q", action)
		return Result{
			Action:     action,
			Type:       TypeUnknownAction,
			StatusCode: 400,
			Message:    "I'm not able to do that yet.",
		}
	}
}

func (e *Executor) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// failed reports whether a store call should fall back to demo data
func (e *Executor) failed(action string, err error) bool {
	if err == nil {
		return false
	}
	e.log.Warn("%v", voiceerr.ActionFailed(action, err))
	return true
}

func (e *Executor) searchOrders(ctx context.Context, params map[string]any) Result {
	res := Result{Action: SearchOrders, Type: TypeOrdersFound, StatusCode: 200}
	criteria := e.criteria(params)

	var orders []store.Order
	err := errors.New("no order store configured")
	if e.store != nil {
		cctx, cancel := e.callCtx(ctx)
		orders, err = e.store.SearchOrders(cctx, criteria)
		cancel()
	}
	if e.failed(SearchOrders, err) {
		res.Orders = demoOrders(e.now())
		res.Demo = true
		res.Message = "The order system is unavailable right now, so here are some sample orders."
		return res
	}

	res.Orders = orders
	res.Message = describeCount(len(orders), "order", "I couldn't find any matching orders.")
	return res
}

func (e *Executor) createOrder(ctx context.Context, params map[string]any) Result {
	draft := store.OrderDraft{
		CustomerName: stringParam(params, paramCustomerName),
		GlassType:    stringParam(params, paramGlassType),
		Quantity:     intParam(params, paramQuantity),
		Dimensions:   stringParam(params, paramDimensions),
		Thickness:    stringParam(params, paramThickness),
		Notes:        stringParam(params, paramNotes),
	}
	if err := draft.Validate(); err != nil {
		return Result{
			Action:     CreateOrder,
			Type:       TypeOrderIncomplete,
			StatusCode: 400,
			Message:    "I still need a few details before I can create that order.",
		}
	}

	res := Result{Action: CreateOrder, Type: TypeOrderCreated, StatusCode: 200}
	var order store.Order
	err := errors.New("no order store configured")
	if e.store != nil {
		cctx, cancel := e.callCtx(ctx)
		order, err = e.store.CreateOrder(cctx, draft)
		cancel()
	}
	if e.failed(CreateOrder, err) {
		order = demoOrder(draft, e.now())
		res.Demo = true
		res.Order = &order
		res.Message = fmt.Sprintf("The order system is unavailable, so I prepared sample order %s. It has not been saved.", order.OrderNumber)
		return res
	}

	res.Order = &order
	res.Message = fmt.Sprintf("Order %s for %d %s glass for %s has been created.",
		order.OrderNumber, order.Quantity, order.GlassType, order.CustomerName)
	return res
}

func (e *Executor) searchCustomers(ctx context.Context, params map[string]any) Result {
	res := Result{Action: SearchCustomers, Type: TypeCustomersFound, StatusCode: 200}
	query := stringParam(params, paramCustomerName)

	var customers []store.Customer
	err := errors.New("no order store configured")
	if e.store != nil {
		cctx, cancel := e.callCtx(ctx)
		customers, err = e.store.SearchCustomers(cctx, query)
		cancel()
	}
	if e.failed(SearchCustomers, err) {
		res.Customers = demoCustomers()
		res.Demo = true
		res.Message = "The customer system is unavailable right now, so here are some sample customers."
		return res
	}

	res.Customers = customers
	res.Message = describeCount(len(customers), "customer", "I couldn't find any matching customers.")
	return res
}

// generatePDF gathers the orders the report covers; rendering happens client side
func (e *Executor) generatePDF(ctx context.Context, params map[string]any) Result {
	found := e.searchOrders(ctx, params)
	found.Action = GeneratePDF
	found.Type = TypePDFRequested
	if found.Demo {
		found.Message = "The order system is unavailable, so the report will use sample data."
	} else {
		found.Message = "Your PDF report is being prepared."
	}
	return found
}

// criteria maps intent parameters onto a store search
func (e *Executor) criteria(params map[string]any) store.Criteria {
	c := store.Criteria{
		CustomerName: stringParam(params, paramCustomerName),
		Status:       stringParam(params, paramStatus),
		GlassType:    stringParam(params, paramGlassType),
		OrderNumber:  stringParam(params, paramOrderNumber),
	}
	if r := stringParam(params, paramDateRange); r != "" {
		if from, to, ok := ResolveDateRange(r, e.now()); ok {
			c.From, c.To = from, to
		}
	}
	return c
}

// ResolveDateRange turns a named range into a half-open [from, to) interval
// in now's location. Weeks start on Monday.
func ResolveDateRange(name string, now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_") {
	case "today":
		return day, day.AddDate(0, 0, 1), true
	case "yesterday":
		return day.AddDate(0, 0, -1), day, true
	case "this_week":
		return weekStart, weekStart.AddDate(0, 0, 7), true
	case "last_week":
		return weekStart.AddDate(0, 0, -7), weekStart, true
	case "this_month":
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case "last_month":
		return monthStart.AddDate(0, -1, 0), monthStart, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func describeCount(n int, noun, none string) string {
	switch n {
	case 0:
		return none
	case 1:
		return fmt.Sprintf("I found 1 %s.", noun)
	default:
		return fmt.Sprintf("I found %d %ss.", n, noun)
	}
}

func stringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}
