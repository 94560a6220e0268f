package checkout

import "github.com/shopspring/decimal"

const reservationProductPrefix = "reservation_"

// LineItemFromReservation builds the fixed single-unit line that represents a
// confirmed reservation in the cart.
func LineItemFromReservation(r Reservation) LineItem {
	productID := r.ProductID
	if productID == "" {
		productID = reservationProductPrefix + r.Key()
	}
	item := LineItem{
		ProductID:        productID,
		Name:             r.ServiceName,
		Quantity:         decimal.NewFromInt(1),
		UnitPrice:        r.TotalAmount,
		OriginalPrice:    r.TotalAmount,
		Category:         "service",
		Unit:             "unit",
		MinOrderQuantity: decimal.NewFromInt(1),
		FromReservation:  true,
		ReservationID:    r.Key(),
	}
	if !r.StartTime.IsZero() || !r.EndTime.IsZero() {
		item.ReservationWindow = &TimeWindow{Start: r.StartTime, End: r.EndTime}
	}
	return item
}

// BindReservation attaches a reservation to the draft. At most one
// reservation may be attached; a second one is rejected.
func (d *Draft) BindReservation(r Reservation) (LineItem, error) {
	if r.Key() == "" {
		return LineItem{}, ErrReservationIDRequired
	}
	if d.reservation != nil || d.hasReservationLine() {
		return LineItem{}, ErrReservationAlreadyBound
	}
	item := LineItemFromReservation(r)
	d.items = append(d.items, item)
	bound := r
	d.reservation = &bound
	return item, nil
}

// UnbindReservation removes every line generated from the reservation and
// clears the selection.
func (d *Draft) UnbindReservation(reservationID string) error {
	if reservationID == "" {
		return ErrReservationIDRequired
	}
	kept := d.items[:0]
	removed := false
	for _, item := range d.items {
		if item.FromReservation && item.ReservationID == reservationID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed && (d.reservation == nil || d.reservation.Key() != reservationID) {
		return ErrReservationNotBound
	}
	d.items = kept
	if !d.hasReservationLine() {
		d.reservation = nil
	}
	return nil
}

func (d *Draft) dropReservation() {
	if d.reservation != nil {
		_ = d.UnbindReservation(d.reservation.Key())
	}
	d.reservation = nil
}

func (d *Draft) hasReservationLine() bool {
	for _, item := range d.items {
		if item.FromReservation {
			return true
		}
	}
	return false
}
