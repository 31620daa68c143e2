package order

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// ItemInput is one requested order line.
type ItemInput struct {
	FoodID    string
	Quantity  int
	Price     decimal.Decimal
	OrderType entity.OrderType
}

// OrderInput carries the client-supplied fields for create and update.
type OrderInput struct {
	Items           []ItemInput
	TotalAmount     decimal.Decimal
	PaymentMethod   entity.PaymentMethod
	DeliveryAddress string
	TableNumber     string
	Guest           entity.GuestDetails
}

// Money columns are NUMERIC(12,2) and quantity is INTEGER.
const (
	moneyScale  = 2
	maxQuantity = math.MaxInt32
)

var maxMoney = decimal.New(1, 10)

var (
	createPaymentMethods = []entity.PaymentMethod{entity.PaymentCash, entity.PaymentCard, entity.PaymentPending}
	updatePaymentMethods = []entity.PaymentMethod{entity.PaymentCash, entity.PaymentCard}
)

func validateHeader(in OrderInput, payments []entity.PaymentMethod) error {
	if len(in.Items) == 0 {
		return errorbank.InvalidInput("order must contain at least one item", errorbank.WithField("items"))
	}
	if !in.TotalAmount.IsPositive() {
		return errorbank.InvalidInput("total amount must be a positive number", errorbank.WithField("totalAmount"))
	}
	if err := checkMoney(in.TotalAmount, "total amount", "totalAmount"); err != nil {
		return err
	}
	for _, allowed := range payments {
		if in.PaymentMethod == allowed {
			return nil
		}
	}
	return errorbank.InvalidInput(
		fmt.Sprintf("payment method must be one of %s", joinPayments(payments)),
		errorbank.WithField("paymentMethod"),
	)
}

// buildItems validates each line in order and converts it to entity items.
// When foods is non-nil every line must reference a known food.
func buildItems(in []ItemInput, foods map[string]entity.Food) ([]*entity.OrderItem, error) {
	items := make([]*entity.OrderItem, 0, len(in))
	for i, line := range in {
		field := fmt.Sprintf("items[%d]", i)
		var food *entity.Food
		if foods != nil {
			f, ok := foods[line.FoodID]
			if !ok {
				return nil, errorbank.NotFound(
					fmt.Sprintf("food %q not found", line.FoodID),
					errorbank.WithField(field+".food"),
				)
			}
			food = &f
		}
		if line.Quantity < 1 {
			return nil, errorbank.InvalidInput("quantity must be at least 1", errorbank.WithField(field+".quantity"))
		}
		if line.Quantity > maxQuantity {
			return nil, errorbank.InvalidInput(
				fmt.Sprintf("quantity must be at most %d", maxQuantity),
				errorbank.WithField(field+".quantity"),
			)
		}
		if line.Price.IsNegative() {
			return nil, errorbank.InvalidInput("price must not be negative", errorbank.WithField(field+".price"))
		}
		if err := checkMoney(line.Price, "price", field+".price"); err != nil {
			return nil, err
		}
		if line.OrderType != entity.OrderTypeTakeaway && line.OrderType != entity.OrderTypeDineIn {
			return nil, errorbank.InvalidInput(
				"order type must be one of takeaway, dine-in",
				errorbank.WithField(field+".orderType"),
			)
		}
		items = append(items, &entity.OrderItem{
			Position:  i,
			FoodID:    line.FoodID,
			Food:      food,
			Quantity:  line.Quantity,
			Price:     line.Price,
			OrderType: line.OrderType,
		})
	}
	return items, nil
}

// checkMoney rejects amounts the money columns would round or overflow.
func checkMoney(v decimal.Decimal, name, field string) error {
	if !v.Equal(v.Truncate(moneyScale)) {
		return errorbank.InvalidInput(
			fmt.Sprintf("%s must have at most %d decimal places", name, moneyScale),
			errorbank.WithField(field),
		)
	}
	if !v.LessThan(maxMoney) {
		return errorbank.InvalidInput(
			fmt.Sprintf("%s must be less than %s", name, maxMoney.String()),
			errorbank.WithField(field),
		)
	}
	return nil
}

func checkTotal(items []*entity.OrderItem, total, tolerance decimal.Decimal) error {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if sum.Sub(total).Abs().GreaterThan(tolerance) {
		return errorbank.InvalidInput(
			fmt.Sprintf("total amount %s does not match item total %s", total.StringFixed(2), sum.StringFixed(2)),
			errorbank.WithField("totalAmount"),
		)
	}
	return nil
}

func foodIDs(items []ItemInput) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.FoodID)
	}
	return ids
}

func joinPayments(methods []entity.PaymentMethod) string {
	parts := make([]string, len(methods))
	for i, m := range methods {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func normalizeGuest(g entity.GuestDetails) entity.GuestDetails {
	return entity.GuestDetails{
		Name:        strings.TrimSpace(g.Name),
		Phone:       strings.TrimSpace(g.Phone),
		Address:     strings.TrimSpace(g.Address),
		TableNumber: strings.TrimSpace(g.TableNumber),
	}
}
