package parking

// Event kinds emitted by the engine.
const (
	EventTicketIssued  = "ticket_issued"
	EventTicketRetired = "ticket_retired"
)

// Event is pushed to subscribers on ticket issuance and retirement so outer
// layers can react without polling. The ticket is a snapshot taken at the
// moment the event fired.
type Event struct {
	Kind   string `json:"event"`
	Ticket Ticket `json:"ticket"`
}

// Subscriber receives engine events synchronously, in operation order.
// Implementations must not call back into the engine from Notify.
type Subscriber interface {
	Notify(Event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event)

func (f SubscriberFunc) Notify(e Event) { f(e) }
