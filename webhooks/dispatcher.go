package webhooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Category is the kind of a messaging event
type Category string

const (
	CategoryAuthentication   Category = "authentication"
	CategoryMessage          Category = "message"
	CategoryMessageDelivered Category = "messageDelivered"
	CategoryPostback         Category = "postback"
	CategoryMessageRead      Category = "messageRead"
	CategoryAccountLinking   Category = "accountLinking"
)

// PageObject is the only envelope object type that is dispatched
const PageObject = "page"

// ErrUnknownCategory is returned when registering under a name outside the fixed set
var ErrUnknownCategory = errors.New("unknown event category")

// categories lists every category in classification priority order.
var categories = []Category{
	CategoryAuthentication,
	CategoryMessage,
	CategoryMessageDelivered,
	CategoryPostback,
	CategoryMessageRead,
	CategoryAccountLinking,
}

// Categories returns every known category in classification priority order
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Classify returns the category of the event. The first populated
// discriminator wins, in the order optin, message, delivery, postback, read,
// account_linking.
func Classify(e *MessagingEvent) (Category, bool) {
	switch {
	case e.Optin != nil:
		return CategoryAuthentication, true
	case e.Message != nil:
		return CategoryMessage, true
	case e.Delivery != nil:
		return CategoryMessageDelivered, true
	case e.Postback != nil:
		return CategoryPostback, true
	case e.Read != nil:
		return CategoryMessageRead, true
	case e.AccountLinking != nil:
		return CategoryAccountLinking, true
	default:
		return "", false
	}
}

// Event is a classified messaging event with its payloads normalized.
type Event struct {
	Category   Category
	DeliveryID string // shared by every event of one webhook call
	PageID     string
	SenderID   string

	// Text is the message text (message events only).
	Text string
	// Payload is the quick reply payload of a message ("" when absent) or the
	// postback payload. Payloads that look like JSON objects are decoded.
	Payload any
	// Referral is the decoded postback referral ref, nil when absent.
	Referral any

	Messaging MessagingEvent
}

// Handler receives classified events. Returning an error does not stop the
// rest of the batch; it is reported by Dispatch.
type Handler func(ctx context.Context, ev *Event) error

// MessageFunc receives message events
type MessageFunc func(ctx context.Context, senderID, text string, payload any, ev MessagingEvent) error

// PostbackFunc receives postback events
type PostbackFunc func(ctx context.Context, senderID string, payload, referral any, ev MessagingEvent) error

// EventFunc receives the raw event of the remaining categories
type EventFunc func(ctx context.Context, ev MessagingEvent) error

// Dispatcher holds the registration table of one client and fans inbound
// events out to it. Register handlers before traffic arrives.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Category][]Handler
}

// NewDispatcher creates a dispatcher with an empty registration table
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Category][]Handler, len(categories)),
	}
}

// On appends h to the handlers of category. Handlers run in registration
// order and the same handler may be registered more than once.
func (d *Dispatcher) On(category Category, h Handler) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if h == nil {
		return errors.New("nil handler")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[category] = append(d.handlers[category], h)
	return nil
}

// OnAll registers h for every category
func (d *Dispatcher) OnAll(h Handler) {
	for _, c := range categories {
		d.mustOn(c, h)
	}
}

// OnMessage registers fn for message events
func (d *Dispatcher) OnMessage(fn MessageFunc) {
	d.mustOn(CategoryMessage, func(ctx context.Context, ev *Event) error {
		return fn(ctx, ev.SenderID, ev.Text, ev.Payload, ev.Messaging)
	})
}

// OnPostback registers fn for postback events
func (d *Dispatcher) OnPostback(fn PostbackFunc) {
	d.mustOn(CategoryPostback, func(ctx context.Context, ev *Event) error {
		return fn(ctx, ev.SenderID, ev.Payload, ev.Referral, ev.Messaging)
	})
}

// OnAuthentication registers fn for optin events
func (d *Dispatcher) OnAuthentication(fn EventFunc) {
	d.mustOn(CategoryAuthentication, rawHandler(fn))
}

// OnMessageDelivered registers fn for delivery events
func (d *Dispatcher) OnMessageDelivered(fn EventFunc) {
	d.mustOn(CategoryMessageDelivered, rawHandler(fn))
}

// OnMessageRead registers fn for read events
func (d *Dispatcher) OnMessageRead(fn EventFunc) {
	d.mustOn(CategoryMessageRead, rawHandler(fn))
}

// OnAccountLinking registers fn for account linking events
func (d *Dispatcher) OnAccountLinking(fn EventFunc) {
	d.mustOn(CategoryAccountLinking, rawHandler(fn))
}

func (d *Dispatcher) mustOn(category Category, h Handler) {
	if err := d.On(category, h); err != nil {
		panic(err)
	}
}

func rawHandler(fn EventFunc) Handler {
	return func(ctx context.Context, ev *Event) error {
		return fn(ctx, ev.Messaging)
	}
}

// Summary counts what happened to one webhook call
type Summary struct {
	DeliveryID   string
	Events       int
	Dispatched   int
	Unclassified int
}

// Dispatch classifies every event of the envelope and runs the handlers for
// its category synchronously, in order. Envelopes whose object is not "page"
// are ignored. Malformed and unclassifiable events are logged and skipped
// without affecting their siblings. Handler errors are collected and returned
// together once the whole batch has run; the return of Dispatch is the single
// completion signal for the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, envelope *WebhookEvent) (Summary, error) {
	summary := Summary{DeliveryID: uuid.NewString()}

	if envelope == nil || envelope.Object != PageObject {
		slog.Debug("Ignoring non-page webhook", "object", objectOf(envelope))
		return summary, nil
	}

	var errs []error
	for _, entry := range envelope.Entry {
		for i := range entry.Messaging {
			summary.Events++
			messaging := entry.Messaging[i]

			if err := messaging.DecodeErr(); err != nil {
				summary.Unclassified++
				slog.Warn("Webhook received malformed messaging event",
					"deliveryID", summary.DeliveryID,
					"pageID", entry.ID,
					"event", string(messaging.Raw()),
					"error", err,
				)
				continue
			}

			category, ok := Classify(&messaging)
			if !ok {
				summary.Unclassified++
				slog.Warn("Webhook received unknown messaging event",
					"deliveryID", summary.DeliveryID,
					"pageID", entry.ID,
					"event", string(messaging.Raw()),
				)
				continue
			}

			ev := newEvent(category, entry.ID, summary.DeliveryID, messaging)
			summary.Dispatched++

			for _, h := range d.handlersFor(category) {
				if err := h(ctx, ev); err != nil {
					slog.Error("Event handler failed",
						"deliveryID", summary.DeliveryID,
						"category", category,
						"senderID", ev.SenderID,
						"error", err,
					)
					errs = append(errs, fmt.Errorf("%s handler: %w", category, err))
				}
			}
		}
	}

	slog.Info("Webhook processed",
		"deliveryID", summary.DeliveryID,
		"events", summary.Events,
		"dispatched", summary.Dispatched,
		"unclassified", summary.Unclassified,
	)

	return summary, errors.Join(errs...)
}

func (d *Dispatcher) handlersFor(category Category) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Handler(nil), d.handlers[category]...)
}

func newEvent(category Category, pageID, deliveryID string, messaging MessagingEvent) *Event {
	ev := &Event{
		Category:   category,
		DeliveryID: deliveryID,
		PageID:     pageID,
		SenderID:   messaging.Sender.ID,
		Messaging:  messaging,
	}

	switch category {
	case CategoryMessage:
		ev.Text = messaging.Message.Text
		ev.Payload = quickReplyPayload(messaging.Message)
	case CategoryPostback:
		ev.Payload = DecodePayload(messaging.Postback.Payload)
		ev.Referral = referralRef(messaging.Postback)
	}

	return ev
}

func objectOf(envelope *WebhookEvent) string {
	if envelope == nil {
		return ""
	}
	return envelope.Object
}
