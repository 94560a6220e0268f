package checkout

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/money"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

type checkoutFeatureContext struct {
	gateway *stubGateway
	session *Session
	outcome *Outcome
	err     error
}

func (c *checkoutFeatureContext) reset() {
	c.gateway = newStubGateway()
	c.gateway.reservations = map[string][]Reservation{}
	c.session = NewSession("feature", SessionOptions{
		Draft:      testDraftConfig(),
		Gateway:    c.gateway,
		Classifier: submission.NewClassifier(money.PYG),
	})
	c.outcome = nil
	c.err = nil
}

func (c *checkoutFeatureContext) customerHasReservation(customerID, reserveID string) error {
	r := massage()
	r.ReserveID = reserveID
	c.gateway.reservations[customerID] = append(c.gateway.reservations[customerID], r)
	return nil
}

func (c *checkoutFeatureContext) customerHasNoPendingSales(customerID string) error {
	c.gateway.pending[customerID] = nil
	return nil
}

func (c *checkoutFeatureContext) customerHasPendingSales(customerID, ids string) error {
	var list []string
	for _, id := range strings.Split(ids, ",") {
		list = append(list, strings.TrimSpace(id))
	}
	c.gateway.pending[customerID] = pendingSales(list...)
	return nil
}

func (c *checkoutFeatureContext) selectsCustomer(customerID string) error {
	return c.session.SelectCustomer(context.Background(), customerID)
}

func (c *checkoutFeatureContext) addsUnits(qty int, productID string, price int) error {
	return c.session.AddItem(LineItem{
		ProductID: productID,
		Name:      productID,
		Quantity:  decimal.NewFromInt(int64(qty)),
		UnitPrice: decimal.NewFromInt(int64(price)),
	})
}

func (c *checkoutFeatureContext) attachesReservation(reserveID string) error {
	_, err := c.session.AttachReservation(context.Background(), reserveID)
	return err
}

func (c *checkoutFeatureContext) submitsPaying(method, currency string) error {
	c.outcome, c.err = c.session.Submit(context.Background(), SubmitRequest{PaymentMethod: method, Currency: currency})
	return nil
}

func (c *checkoutFeatureContext) choosesCreateNew() error {
	c.outcome, c.err = c.session.DecidePending(context.Background(), ActionCreateNew, "", cash)
	return nil
}

func (c *checkoutFeatureContext) choosesAppendNow(saleID string) error {
	c.outcome, c.err = c.session.DecidePending(context.Background(), ActionAppendNow, saleID, SubmitRequest{})
	return nil
}

func (c *checkoutFeatureContext) choosesKeep(saleID string) error {
	_, err := c.session.DecidePending(context.Background(), ActionSelect, saleID, SubmitRequest{})
	return err
}

func (c *checkoutFeatureContext) pendingSaleSettled(saleID string) error {
	for customerID, sales := range c.gateway.pending {
		kept := sales[:0]
		for _, s := range sales {
			if s.SaleID != saleID {
				kept = append(kept, s)
			}
		}
		c.gateway.pending[customerID] = kept
	}
	return nil
}

func (c *checkoutFeatureContext) newSaleCreated() error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if c.outcome == nil || c.outcome.Status != OutcomeCreated {
		return fmt.Errorf("expected created outcome, got %+v", c.outcome)
	}
	if n := c.gateway.count("CreateSale"); n != 1 {
		return fmt.Errorf("expected 1 create call, got %d", n)
	}
	return nil
}

func (c *checkoutFeatureContext) productsAppended(saleID string) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if c.outcome == nil || c.outcome.Status != OutcomeAppended || c.outcome.SaleID != saleID {
		return fmt.Errorf("expected append to %s, got %+v", saleID, c.outcome)
	}
	if len(c.gateway.appended[saleID]) != 1 {
		return fmt.Errorf("expected one append request for %s", saleID)
	}
	return nil
}

func (c *checkoutFeatureContext) submissionPaused(n int) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if c.outcome == nil || c.outcome.Status != OutcomeNeedsDecision {
		return fmt.Errorf("expected needs_decision, got %+v", c.outcome)
	}
	if len(c.outcome.PendingSales) != n {
		return fmt.Errorf("expected %d pending sales, got %d", n, len(c.outcome.PendingSales))
	}
	return nil
}

func (c *checkoutFeatureContext) submissionRejected(text string) error {
	if c.err == nil {
		return fmt.Errorf("expected an error containing %q", text)
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("error %q does not contain %q", c.err.Error(), text)
	}
	return nil
}

func (c *checkoutFeatureContext) noSaleRequest() error {
	if n := c.gateway.count("CreateSale"); n != 0 {
		return fmt.Errorf("expected no create calls, got %d", n)
	}
	return nil
}

func (c *checkoutFeatureContext) noProductsAppended() error {
	if n := c.gateway.count("AddProductsToSale"); n != 0 {
		return fmt.Errorf("expected no append calls, got %d", n)
	}
	return nil
}

func (c *checkoutFeatureContext) cartIsEmpty() error {
	return c.cartHasLines(0)
}

func (c *checkoutFeatureContext) cartHasLines(n int) error {
	if got := len(c.session.View().Items); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *checkoutFeatureContext) bindingUnset() error {
	if bound := c.session.View().BoundSale; bound != nil {
		return fmt.Errorf("expected no binding, bound to %s", bound.SaleID)
	}
	return nil
}

func (c *checkoutFeatureContext) resolverStateIs(state string) error {
	if got := c.session.View().ResolverState; string(got) != state {
		return fmt.Errorf("expected state %s, got %s", state, got)
	}
	return nil
}

func InitializeCheckoutScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutFeatureContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the customer "([^"]*)" has a confirmed reservation "([^"]*)"$`, tc.customerHasReservation)
	ctx.Step(`^the customer "([^"]*)" has no pending sales$`, tc.customerHasNoPendingSales)
	ctx.Step(`^the customer "([^"]*)" has pending sales "([^"]*)"$`, tc.customerHasPendingSales)

	// When steps
	ctx.Step(`^the operator selects customer "([^"]*)"$`, tc.selectsCustomer)
	ctx.Step(`^selects customer "([^"]*)"$`, tc.selectsCustomer)
	ctx.Step(`^adds (\d+) units of "([^"]*)" at (\d+)$`, tc.addsUnits)
	ctx.Step(`^attaches reservation "([^"]*)"$`, tc.attachesReservation)
	ctx.Step(`^submits paying with "([^"]*)" in "([^"]*)"$`, tc.submitsPaying)
	ctx.Step(`^chooses to create a new sale anyway$`, tc.choosesCreateNew)
	ctx.Step(`^chooses to append products now to pending sale "([^"]*)"$`, tc.choosesAppendNow)
	ctx.Step(`^chooses to keep pending sale "([^"]*)"$`, tc.choosesKeep)
	ctx.Step(`^pending sale "([^"]*)" is settled by the backoffice$`, tc.pendingSaleSettled)

	// Then steps
	ctx.Step(`^a new sale is created$`, tc.newSaleCreated)
	ctx.Step(`^products are appended to pending sale "([^"]*)"$`, tc.productsAppended)
	ctx.Step(`^the submission is paused with (\d+) pending sales$`, tc.submissionPaused)
	ctx.Step(`^the submission is rejected with "([^"]*)"$`, tc.submissionRejected)
	ctx.Step(`^no sale request was sent$`, tc.noSaleRequest)
	ctx.Step(`^no products were appended$`, tc.noProductsAppended)
	ctx.Step(`^the cart is empty$`, tc.cartIsEmpty)
	ctx.Step(`^the cart has (\d+) lines$`, tc.cartHasLines)
	ctx.Step(`^the pending sale binding is unset$`, tc.bindingUnset)
	ctx.Step(`^the resolver state is "([^"]*)"$`, tc.resolverStateIs)
}

func TestPendingSaleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeCheckoutScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pending_sales.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
