package services

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/push"
	"github.com/foodloop-labs/foodloop-backend/internal/storage"
)

type recordedNote struct {
	recipients []models.Recipient
	note       push.Notification
}

// fakeNotifier records calls synchronously; the detachment under test is the
// service's contract (it must not wait on delivery), not the fake's.
type fakeNotifier struct {
	mu    sync.Mutex
	notes []recordedNote
}

func (f *fakeNotifier) NotifyDetached(recipients []models.Recipient, note push.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, recordedNote{recipients: recipients, note: note})
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = nil
}

func (f *fakeNotifier) recorded() []recordedNote {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedNote, len(f.notes))
	copy(out, f.notes)
	return out
}

type orderFixture struct {
	store    *storage.MemoryStore
	notifier *fakeNotifier
	svc      *OrderService

	restaurant *models.Restaurant
	customer   *models.Customer
	plain      *models.MenuItem
	discounted *models.MenuItem
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	store := storage.NewMemoryStore()
	notifier := &fakeNotifier{}

	restaurant, err := store.CreateRestaurant(&models.Restaurant{Name: "Biryani House", WebPushToken: "fcm-rest"})
	if err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	customer, err := store.CreateCustomer(&models.Customer{
		Name:            "Asha",
		Email:           "asha@example.com",
		MobilePushToken: "ExponentPushToken[asha]",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	plain, err := store.CreateMenuItem(&models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         "Veg Biryani",
		Price:        200,
	})
	if err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
	discount := 150.0
	discounted, err := store.CreateMenuItem(&models.MenuItem{
		RestaurantID:    restaurant.ID,
		Name:            "Paneer Tikka",
		Price:           180,
		DiscountedPrice: &discount,
	})
	if err != nil {
		t.Fatalf("seed discounted menu item: %v", err)
	}

	return &orderFixture{
		store:      store,
		notifier:   notifier,
		svc:        NewOrderService(store, notifier),
		restaurant: restaurant,
		customer:   customer,
		plain:      plain,
		discounted: discounted,
	}
}

func (f *orderFixture) createOrder(t *testing.T, items []OrderItemInput) *models.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(CreateOrderInput{
		RestaurantID: f.restaurant.ID,
		CustomerID:   f.customer.ID,
		Items:        items,
		PaymentType:  "cod",
		OrderType:    "delivery",
		Address:      "12 MG Road",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	f.notifier.reset()
	return order
}

func (f *orderFixture) orderAt(t *testing.T, status models.OrderStatus, partnerID *string) *models.Order {
	t.Helper()
	order := f.createOrder(t, []OrderItemInput{{MenuItemID: f.plain.ID, Quantity: 1}})
	if partnerID != nil {
		if _, err := f.store.AssignDeliveryPartner(order.ID, *partnerID); err != nil {
			t.Fatalf("assign partner: %v", err)
		}
	}
	if status != models.StatusPending {
		if ok, err := f.store.UpdateOrderStatusGuarded(order.ID, models.StatusPending, status); err != nil || !ok {
			t.Fatalf("seed status %s: ok=%v err=%v", status, ok, err)
		}
	}
	got, err := f.store.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return got
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCreateOrderComputesAmounts(t *testing.T) {
	f := newOrderFixture(t)

	order := f.createOrder(t, []OrderItemInput{
		{MenuItemID: f.plain.ID, Quantity: 2},
		{
			MenuItemID: f.discounted.ID,
			Quantity:   1,
			Addons:     []models.OrderAddon{{Name: "Extra Raita", ExtraPrice: 30}},
		},
	})

	// 2*200 + 1*150 + 30 addon; the discount applies, not the base price.
	wantItems := 580.0
	if !approxEqual(order.ItemsAmount, wantItems) {
		t.Fatalf("items amount: want %v, got %v", wantItems, order.ItemsAmount)
	}
	if !approxEqual(order.GST, wantItems*models.GSTRate) {
		t.Fatalf("gst: want %v, got %v", wantItems*models.GSTRate, order.GST)
	}
	if !approxEqual(order.TotalAmount, order.ItemsAmount+order.GST) {
		t.Fatalf("total: want items+gst=%v, got %v", order.ItemsAmount+order.GST, order.TotalAmount)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("new order must start pending, got %s", order.Status)
	}

	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	line := order.Items[1]
	if line.BasePrice != 180 || !approxEqual(line.TotalPrice, 180) {
		t.Fatalf("discounted line: base %v total %v", line.BasePrice, line.TotalPrice)
	}
}

func TestCreateOrderUnknownMenuItem(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.CreateOrder(CreateOrderInput{
		RestaurantID: f.restaurant.ID,
		CustomerID:   f.customer.ID,
		Items:        []OrderItemInput{{MenuItemID: "missing-item", Quantity: 1}},
	})
	if !errors.Is(err, models.ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing-item") {
		t.Fatalf("error must name the offending item id, got %q", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)

	cases := []CreateOrderInput{
		{CustomerID: f.customer.ID, Items: []OrderItemInput{{MenuItemID: f.plain.ID, Quantity: 1}}},
		{RestaurantID: f.restaurant.ID, CustomerID: f.customer.ID},
		{RestaurantID: f.restaurant.ID, CustomerID: f.customer.ID,
			Items: []OrderItemInput{{MenuItemID: f.plain.ID, Quantity: 0}}},
	}
	for i, input := range cases {
		var verr *models.ValidationError
		if _, err := f.svc.CreateOrder(input); !errors.As(err, &verr) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateOrderNotifiesPartnersAndRestaurant(t *testing.T) {
	f := newOrderFixture(t)

	live1, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi", IsLive: true, MobilePushToken: "ExponentPushToken[ravi]"})
	live2, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Sunil", IsLive: true})
	f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Offline", IsLive: false})

	order, err := f.svc.CreateOrder(CreateOrderInput{
		RestaurantID: f.restaurant.ID,
		CustomerID:   f.customer.ID,
		Items:        []OrderItemInput{{MenuItemID: f.plain.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	notes := f.notifier.recorded()
	if len(notes) != 2 {
		t.Fatalf("expected partner broadcast + restaurant alert, got %d calls", len(notes))
	}

	broadcast := notes[0]
	if len(broadcast.recipients) != 2 {
		t.Fatalf("broadcast must reach only live partners, got %d recipients", len(broadcast.recipients))
	}
	seen := map[string]bool{}
	for _, r := range broadcast.recipients {
		if r.Kind != models.KindDeliveryPartner {
			t.Fatalf("unexpected recipient kind %s in partner broadcast", r.Kind)
		}
		seen[r.ID] = true
	}
	if !seen[live1.ID] || !seen[live2.ID] {
		t.Fatalf("broadcast missed a live partner: %v", seen)
	}
	if broadcast.note.Data["type"] != "new_order" || broadcast.note.Data["orderId"] != order.ID {
		t.Fatalf("unexpected broadcast payload: %v", broadcast.note.Data)
	}

	alert := notes[1]
	if len(alert.recipients) != 1 || alert.recipients[0].Kind != models.KindRestaurant {
		t.Fatalf("restaurant alert has wrong recipients: %+v", alert.recipients)
	}
	if alert.note.Title != "New Order Received!" {
		t.Fatalf("unexpected restaurant alert title %q", alert.note.Title)
	}
	if !strings.Contains(alert.note.Body, f.customer.Name) {
		t.Fatalf("restaurant alert should name the customer, got %q", alert.note.Body)
	}
}

func TestTransitionDispatchRequiresReady(t *testing.T) {
	f := newOrderFixture(t)
	partner, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi"})
	order := f.orderAt(t, models.StatusPreparing, &partner.ID)

	_, err := f.svc.TransitionStatus(order.ID, models.StatusDispatch)
	var terr *models.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if !strings.Contains(terr.Reason, "ready") {
		t.Fatalf("reason should name the ready precondition, got %q", terr.Reason)
	}
	if len(f.notifier.recorded()) != 0 {
		t.Fatal("refused transition must not notify")
	}
}

func TestTransitionDispatchRequiresPartner(t *testing.T) {
	f := newOrderFixture(t)
	order := f.orderAt(t, models.StatusReady, nil)

	_, err := f.svc.TransitionStatus(order.ID, models.StatusDispatch)
	var terr *models.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if !strings.Contains(terr.Reason, "delivery partner") {
		t.Fatalf("reason should name the missing partner, got %q", terr.Reason)
	}
}

func TestTransitionDispatchSucceeds(t *testing.T) {
	f := newOrderFixture(t)
	partner, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi"})
	order := f.orderAt(t, models.StatusReady, &partner.ID)

	updated, err := f.svc.TransitionStatus(order.ID, models.StatusDispatch)
	if err != nil {
		t.Fatalf("dispatch transition failed: %v", err)
	}
	if updated.Status != models.StatusDispatch {
		t.Fatalf("returned order has status %s", updated.Status)
	}

	stored, err := f.store.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if stored.Status != models.StatusDispatch {
		t.Fatalf("stored order has status %s", stored.Status)
	}

	notes := f.notifier.recorded()
	if len(notes) != 1 {
		t.Fatalf("expected one customer notification, got %d", len(notes))
	}
	note := notes[0]
	if note.recipients[0].Kind != models.KindCustomer || note.recipients[0].ID != f.customer.ID {
		t.Fatalf("notification went to the wrong recipient: %+v", note.recipients)
	}
	if note.note.Title != "Order On The Way!" {
		t.Fatalf("unexpected title %q", note.note.Title)
	}
	if note.note.Data["status"] != string(models.StatusDispatch) || note.note.Data["type"] != "order_status_update" {
		t.Fatalf("unexpected payload: %v", note.note.Data)
	}
}

func TestTransitionDeliveredRequiresInteraction(t *testing.T) {
	f := newOrderFixture(t)
	partner, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi"})
	order := f.orderAt(t, models.StatusDispatch, &partner.ID)

	if _, err := f.svc.TransitionStatus(order.ID, models.StatusDelivered); err != nil {
		t.Fatalf("delivered transition failed: %v", err)
	}

	notes := f.notifier.recorded()
	if len(notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notes))
	}
	if !notes[0].note.Web.RequireInteraction {
		t.Fatal("delivered notification must require interaction on web")
	}
}

func TestTransitionRejectedSkipsCustomerNotification(t *testing.T) {
	f := newOrderFixture(t)
	order := f.orderAt(t, models.StatusPending, nil)

	updated, err := f.svc.TransitionStatus(order.ID, models.StatusRejected)
	if err != nil {
		t.Fatalf("reject transition failed: %v", err)
	}
	if updated.Status != models.StatusRejected {
		t.Fatalf("returned order has status %s", updated.Status)
	}
	if len(f.notifier.recorded()) != 0 {
		t.Fatal("rejection must not notify the customer")
	}
}

func TestTransitionFromTerminalStatusRefused(t *testing.T) {
	f := newOrderFixture(t)
	partner, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi"})
	order := f.orderAt(t, models.StatusDelivered, &partner.ID)

	_, err := f.svc.TransitionStatus(order.ID, models.StatusPreparing)
	var terr *models.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	f := newOrderFixture(t)
	order := f.orderAt(t, models.StatusPending, nil)

	var verr *models.ValidationError
	if _, err := f.svc.TransitionStatus(order.ID, "in-flight"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)
	if _, err := f.svc.TransitionStatus("missing-order", models.StatusPreparing); !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestAcceptOrderAssignsPartnerOnce(t *testing.T) {
	f := newOrderFixture(t)
	order := f.orderAt(t, models.StatusPending, nil)
	first, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Ravi"})
	second, _ := f.store.CreateDeliveryPartner(&models.DeliveryPartner{Name: "Sunil"})

	accepted, err := f.svc.AcceptOrder(order.ID, first.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.DeliveryPartnerID == nil || *accepted.DeliveryPartnerID != first.ID {
		t.Fatalf("partner not recorded: %+v", accepted.DeliveryPartnerID)
	}

	if _, err := f.svc.AcceptOrder(order.ID, second.ID); !errors.Is(err, models.ErrPartnerAlreadyAssigned) {
		t.Fatalf("expected ErrPartnerAlreadyAssigned, got %v", err)
	}
}

func TestAcceptOrderUnknownPartner(t *testing.T) {
	f := newOrderFixture(t)
	order := f.orderAt(t, models.StatusPending, nil)

	if _, err := f.svc.AcceptOrder(order.ID, "ghost"); !errors.Is(err, models.ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
}
