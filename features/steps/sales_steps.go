package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/command"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/notification"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/query"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/memory"
	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type salesFeature struct {
	repo      *memory.Repository
	handler   *command.Handler
	carts     *query.Service
	collector *notification.Collector

	customerID  uuid.UUID
	productID   uuid.UUID
	productName string
	price       decimal.Decimal
	now         time.Time

	lastOK bool
}

func (f *salesFeature) reset(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	f.now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	f.repo = memory.New(log.Nop())
	f.collector = notification.NewCollector()
	bus := mediator.New(log.Nop())
	bus.Subscribe(f.collector, domain.TypeNotification)
	f.handler = command.NewHandler(f.repo, bus, log.Nop(), command.WithClock(func() time.Time { return f.now }))
	f.carts = query.New(f.repo, log.Nop())
	f.customerID = uuid.Nil
	f.productID = uuid.Nil
	f.lastOK = false

	return ctx, nil
}

func (f *salesFeature) productInCatalog(name string, price float64) error {
	f.productID = uuid.New()
	f.productName = name
	f.price = decimal.NewFromFloat(price)
	return nil
}

func (f *salesFeature) customerIdentified() error {
	f.customerID = uuid.New()
	return nil
}

func (f *salesFeature) alreadyAdded(units int) error {
	if !f.addUnits(units) {
		return fmt.Errorf("setup add failed: %v", f.collector.Messages())
	}
	f.collector.Clear()
	return nil
}

func (f *salesFeature) voucher(kind, code string, value int, until time.Time, active bool) {
	var pct, fixed decimal.NullDecimal
	if domain.DiscountType(kind) == domain.DiscountByPercentage {
		pct = decimal.NewNullDecimal(decimal.NewFromInt(int64(value)))
	} else {
		fixed = decimal.NewNullDecimal(decimal.NewFromInt(int64(value)))
	}
	f.repo.SeedVoucher(*domain.NewVoucher(code, pct, fixed, 1, domain.DiscountType(kind), until, active, false))
}

func (f *salesFeature) validVoucher(kind, code string, value int) error {
	f.voucher(kind, code, value, f.now.AddDate(0, 0, 1), true)
	return nil
}

func (f *salesFeature) expiredInactiveVoucher(kind, code string, value int) error {
	f.voucher(kind, code, value, f.now.AddDate(0, 0, -1), false)
	return nil
}

func (f *salesFeature) addUnits(units int) bool {
	f.lastOK = f.handler.AddItem(context.Background(), command.AddItem{
		CustomerID: f.customerID,
		ProductID:  f.productID,
		Name:       f.productName,
		Quantity:   units,
		UnitPrice:  f.price,
	})
	return f.lastOK
}

func (f *salesFeature) customerAdds(units int) error {
	f.addUnits(units)
	return nil
}

func (f *salesFeature) anonymousAdd(units int) error {
	f.lastOK = f.handler.AddItem(context.Background(), command.AddItem{Quantity: units})
	return nil
}

func (f *salesFeature) changeQuantity(units int) error {
	f.lastOK = f.handler.UpdateItem(context.Background(), command.UpdateItem{
		CustomerID: f.customerID,
		ProductID:  f.productID,
		Quantity:   units,
	})
	return nil
}

func (f *salesFeature) removeProduct() error {
	f.lastOK = f.handler.RemoveItem(context.Background(), command.RemoveItem{
		CustomerID: f.customerID,
		ProductID:  f.productID,
	})
	return nil
}

func (f *salesFeature) applyVoucher(code string) error {
	f.lastOK = f.handler.ApplyVoucher(context.Background(), command.ApplyVoucher{
		CustomerID:  f.customerID,
		VoucherCode: code,
	})
	return nil
}

func (f *salesFeature) commandSucceeds() error {
	if !f.lastOK {
		return fmt.Errorf("command failed: %v", f.collector.Messages())
	}
	return nil
}

func (f *salesFeature) commandFails() error {
	if f.lastOK {
		return fmt.Errorf("command succeeded")
	}
	return nil
}

func (f *salesFeature) toldMessage(msg string) error {
	for _, m := range f.collector.Messages() {
		if m == msg {
			return nil
		}
	}
	return fmt.Errorf("notification %q not found in %v", msg, f.collector.Messages())
}

func (f *salesFeature) notificationCount(n int) error {
	if got := len(f.collector.Notifications()); got != n {
		return fmt.Errorf("want %d notifications, got %d: %v", n, got, f.collector.Messages())
	}
	return nil
}

func (f *salesFeature) cart() (*query.Cart, error) {
	c, err := f.carts.Cart(context.Background(), f.customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("customer has no cart")
	}
	return c, nil
}

func (f *salesFeature) cartLines(n int) error {
	c, err := f.cart()
	if err != nil {
		return err
	}
	if len(c.Items) != n {
		return fmt.Errorf("want %d lines, got %d", n, len(c.Items))
	}
	return nil
}

func (f *salesFeature) lineUnits(n int) error {
	c, err := f.cart()
	if err != nil {
		return err
	}
	for _, it := range c.Items {
		if it.ProductID == f.productID {
			if it.Quantity != n {
				return fmt.Errorf("want %d units, got %d", n, it.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("product not in cart")
}

func (f *salesFeature) cartTotal(total string) error {
	c, err := f.cart()
	if err != nil {
		return err
	}
	want := decimal.RequireFromString(total)
	if !c.Total.Equal(want) {
		return fmt.Errorf("want total %s, got %s", want, c.Total)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	f := &salesFeature{}
	ctx.Before(f.reset)

	ctx.Step(`^a product "([^"]*)" priced at (\d+(?:\.\d+)?) is in the catalog$`, f.productInCatalog)
	ctx.Step(`^the customer is identified$`, f.customerIdentified)
	ctx.Step(`^the product was already added to the cart with (\d+) units$`, f.alreadyAdded)
	ctx.Step(`^an? (amount|percentage) voucher "([^"]*)" worth (\d+) valid until tomorrow$`, f.validVoucher)
	ctx.Step(`^an inactive (amount|percentage) voucher "([^"]*)" worth (\d+) that expired yesterday$`, f.expiredInactiveVoucher)

	ctx.Step(`^the customer adds (\d+) units? to the cart$`, f.customerAdds)
	ctx.Step(`^an anonymous request adds (\d+) units of an unnamed free product$`, f.anonymousAdd)
	ctx.Step(`^the customer changes the quantity to (\d+)$`, f.changeQuantity)
	ctx.Step(`^the customer removes the product from the cart$`, f.removeProduct)
	ctx.Step(`^the customer applies the voucher "([^"]*)"$`, f.applyVoucher)

	ctx.Step(`^the command succeeds$`, f.commandSucceeds)
	ctx.Step(`^the command fails$`, f.commandFails)
	ctx.Step(`^the customer is told "([^"]*)"$`, f.toldMessage)
	ctx.Step(`^the customer receives (\d+) notifications$`, f.notificationCount)
	ctx.Step(`^the cart has (\d+) lines?$`, f.cartLines)
	ctx.Step(`^the cart line has (\d+) units$`, f.lineUnits)
	ctx.Step(`^the cart total is (\d+(?:\.\d+)?)$`, f.cartTotal)
}
