package checkout

// ResolverState is the position of the pending-sale state machine.
type ResolverState string

const (
	StateIdle             ResolverState = "idle"
	StateLoading          ResolverState = "loading"
	StateResolvedNone     ResolverState = "resolved_none"
	StateAwaitingDecision ResolverState = "awaiting_decision"
	StateBoundToPending   ResolverState = "bound_to_pending"
	StateFetchFailed      ResolverState = "fetch_failed"
)

// SubmitMode is how the next submission is sent.
type SubmitMode string

const (
	ModeCreate SubmitMode = "create"
	ModeAppend SubmitMode = "append"
	ModePrompt SubmitMode = "prompt"
)

// FetchTicket identifies one pending-sale fetch. Responses carrying an
// outdated ticket are discarded.
type FetchTicket struct {
	CustomerID string
	seq        uint64
}

// Decision is what a submission should do given the resolver state.
type Decision struct {
	Mode     SubmitMode
	Sale     *PendingSale
	Override bool
}

// Resolver decides whether a submission creates an order, appends to a
// pending one or must first ask the operator.
type Resolver struct {
	customerID    string
	seq           uint64
	loaded        bool
	fetchFailed   bool
	pending       []PendingSale
	bound         *PendingSale
	createNewOnce bool
}

// NewResolver starts in the idle state.
func NewResolver() *Resolver {
	return &Resolver{}
}

// SetCustomer forgets everything known about the previous customer and
// returns the ticket for the fetch of the new customer's pending sales.
func (r *Resolver) SetCustomer(customerID string) FetchTicket {
	r.customerID = customerID
	r.pending = nil
	r.bound = nil
	r.createNewOnce = false
	r.loaded = false
	r.fetchFailed = false
	r.seq++
	return FetchTicket{CustomerID: customerID, seq: r.seq}
}

// Refresh returns a ticket for re-fetching the current customer's pending
// sales. Known state stays visible until the response arrives.
func (r *Resolver) Refresh() FetchTicket {
	r.seq++
	return FetchTicket{CustomerID: r.customerID, seq: r.seq}
}

func (r *Resolver) current(t FetchTicket) bool {
	return r.customerID != "" && t.CustomerID == r.customerID && t.seq == r.seq
}

// ApplyFetch stores a fetch result. It reports false when the ticket is stale.
// A bound sale that no longer appears in the list has been settled, so the
// binding is cleared; otherwise the binding follows the fresh snapshot.
func (r *Resolver) ApplyFetch(t FetchTicket, sales []PendingSale) bool {
	if !r.current(t) {
		return false
	}
	r.pending = append([]PendingSale(nil), sales...)
	r.loaded = true
	r.fetchFailed = false
	if r.bound != nil {
		r.bound = r.find(r.bound.SaleID)
	}
	return true
}

// FetchFailed records a failed fetch for the current ticket.
func (r *Resolver) FetchFailed(t FetchTicket) bool {
	if !r.current(t) {
		return false
	}
	if !r.loaded {
		r.fetchFailed = true
	}
	return true
}

// State reports the current resolver state.
func (r *Resolver) State() ResolverState {
	switch {
	case r.customerID == "":
		return StateIdle
	case r.bound != nil:
		return StateBoundToPending
	case r.fetchFailed:
		return StateFetchFailed
	case !r.loaded:
		return StateLoading
	case len(r.pending) == 0:
		return StateResolvedNone
	default:
		return StateAwaitingDecision
	}
}

// Decide reports the submission mode without consuming the one-shot
// override; call ConsumeOverride once the submission is actually sent.
func (r *Resolver) Decide() (Decision, error) {
	switch r.State() {
	case StateIdle:
		return Decision{}, ErrCustomerRequired
	case StateBoundToPending:
		sale := *r.bound
		return Decision{Mode: ModeAppend, Sale: &sale}, nil
	}
	if r.createNewOnce {
		return Decision{Mode: ModeCreate, Override: true}, nil
	}
	switch r.State() {
	case StateLoading:
		return Decision{}, ErrPendingSalesLoading
	case StateFetchFailed:
		return Decision{}, ErrPendingSalesUnavailable
	case StateResolvedNone:
		return Decision{Mode: ModeCreate}, nil
	default:
		return Decision{Mode: ModePrompt}, nil
	}
}

// ConsumeOverride spends a create-new override.
func (r *Resolver) ConsumeOverride() {
	r.createNewOnce = false
}

// Select binds subsequent submissions to one of the customer's pending sales.
func (r *Resolver) Select(saleID string) (PendingSale, error) {
	sale := r.find(saleID)
	if sale == nil {
		return PendingSale{}, ErrPendingSaleNotFound
	}
	r.bound = sale
	r.createNewOnce = false
	return *sale, nil
}

// CreateNewOnce lets the next submission create a new order even though
// pending sales exist.
func (r *Resolver) CreateNewOnce() error {
	if r.customerID == "" {
		return ErrCustomerRequired
	}
	r.bound = nil
	r.createNewOnce = true
	return nil
}

// ClearBinding drops the bound pending sale.
func (r *Resolver) ClearBinding() {
	r.bound = nil
}

// CustomerID is the customer whose pending sales are tracked.
func (r *Resolver) CustomerID() string { return r.customerID }

// Bound returns a copy of the bound pending sale or nil.
func (r *Resolver) Bound() *PendingSale {
	if r.bound == nil {
		return nil
	}
	sale := *r.bound
	return &sale
}

// PendingSales returns a copy of the last fetched list.
func (r *Resolver) PendingSales() []PendingSale {
	return append([]PendingSale(nil), r.pending...)
}

func (r *Resolver) find(saleID string) *PendingSale {
	for i := range r.pending {
		if r.pending[i].SaleID == saleID {
			sale := r.pending[i]
			return &sale
		}
	}
	return nil
}
