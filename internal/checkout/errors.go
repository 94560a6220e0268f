package checkout

import "errors"

// Discount errors. These are resolved locally and never reach the backoffice.
var (
	ErrPercentOutOfRange    = errors.New("discount percentage must be between 0 and 100")
	ErrNegativeDiscount     = errors.New("discount amount cannot be negative")
	ErrDiscountExceedsPrice = errors.New("discount cannot exceed price")
	ErrNegativePrice        = errors.New("price cannot be negative")
	ErrPriceAboveOriginal   = errors.New("price cannot exceed the original price")
	ErrUnknownDiscountKind  = errors.New("unknown discount kind")
)

// Cart errors.
var (
	ErrProductRequired          = errors.New("product id is required")
	ErrInvalidQuantity          = errors.New("quantity must be greater than zero")
	ErrItemNotFound             = errors.New("line item not found")
	ErrReservationQuantityFixed = errors.New("quantity of a reservation line cannot be changed")
	ErrUseReservationBinder     = errors.New("reservation lines must be added by binding the reservation")
	ErrCustomerRequired         = errors.New("a customer must be selected")
	ErrEmptyCart                = errors.New("at least one line item is required")
	ErrInvalidLineItem          = errors.New("line items need a quantity and price above zero")
	ErrBelowMinimumQuantity     = errors.New("quantity is below the minimum order quantity")
	ErrTotalOutOfBounds         = errors.New("sale total is outside the allowed range")
)

// Reservation errors.
var (
	ErrReservationIDRequired      = errors.New("reservation id is required")
	ErrReservationAlreadyBound    = errors.New("a reservation is already attached to this sale")
	ErrReservationNotBound        = errors.New("reservation is not attached to this sale")
	ErrReservationNotFound        = errors.New("reservation not found among the customer's confirmed reservations")
	ErrReservationWithPendingSale = errors.New("a reservation cannot be attached when adding products to an existing sale")
)

// Submission flow errors.
var (
	ErrSubmissionInFlight      = errors.New("a submission is already in progress")
	ErrPendingSalesLoading     = errors.New("pending sales for the customer are still loading")
	ErrPendingSalesUnavailable = errors.New("pending sales for the customer could not be loaded")
	ErrPendingSaleNotFound     = errors.New("pending sale not found for the customer")
	ErrCustomerChanged         = errors.New("the selected customer changed while the request was running")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrPaymentMethodRequired   = errors.New("a payment method must be selected")
	ErrCurrencyRequired        = errors.New("a currency must be selected")
	ErrPaymentMethodNotFound   = errors.New("payment method not found")
	ErrCurrencyNotFound        = errors.New("currency not found")
	ErrUnknownPendingAction    = errors.New("unknown pending sale action")
	ErrSessionNotFound         = errors.New("sales session not found")
)
