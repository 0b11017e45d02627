package events

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/masapp/restaurant-backend/models"
)

// Event types
const (
	EventOrderUpdate    = "order_update"
	EventKitchenUpdate  = "kitchen_update"
	EventSessionUpdate  = "session_update"
	EventSessionClosed  = "session_closed"
	EventPaymentRequest = "payment_request"
	EventPartialPayment = "partial_payment"
	EventPaymentUpdate  = "payment_update"
	EventStaffNotif     = "staff_notification"
	EventDashboard      = "dashboard_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected actor panel (waiter, kitchen, cashier, admin).
// The panels poll the REST API for authoritative state; the hub only nudges
// them so the next poll happens sooner.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection with its role.
func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

// UnregisterClient releases a connection.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastOrderUpdate pushes a fresh order snapshot to every panel.
func BroadcastOrderUpdate(order models.Order) {
	broadcast(Message{
		Event: EventOrderUpdate,
		Data:  order,
	})
}

// BroadcastKitchenUpdate targets the kitchen display.
func BroadcastKitchenUpdate(data interface{}) {
	broadcast(Message{
		Event: EventKitchenUpdate,
		Data:  data,
	})
}

// BroadcastSessionUpdate announces an issued or re-issued table session.
func BroadcastSessionUpdate(session models.TableSession) {
	broadcast(Message{
		Event: EventSessionUpdate,
		Data:  session,
	})
}

// BroadcastSessionClosed announces an invalidated table session.
func BroadcastSessionClosed(session models.TableSession) {
	broadcast(Message{
		Event: EventSessionClosed,
		Data:  session,
	})
}

// BroadcastPaymentRequest notifies staff that a diner started a payment from
// their own device.
func BroadcastPaymentRequest(restaurantID uint, tableNumber int, orderID uint, amount float64) {
	broadcast(Message{
		Event: EventPaymentRequest,
		Data: map[string]interface{}{
			"restaurant_id": restaurantID,
			"table_number":  tableNumber,
			"order_id":      orderID,
			"amount":        amount,
		},
	})
}

// BroadcastPartialPayment notifies panels that an order is partially settled.
func BroadcastPartialPayment(payment models.Payment) {
	broadcast(Message{
		Event: EventPartialPayment,
		Data: map[string]interface{}{
			"restaurant_id":    payment.RestaurantID,
			"table_number":     payment.TableNumber,
			"order_id":         payment.OrderID,
			"amount":           payment.Amount,
			"remaining_amount": payment.RemainingAmount,
			"timestamp":        payment.CreatedAt,
		},
	})
}

// BroadcastPaymentUpdate pushes a recorded payment with its order.
func BroadcastPaymentUpdate(payment models.Payment, order models.Order) {
	broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"payment": payment,
			"order":   order,
		},
	})
}

// BroadcastStaffNotification sends a plain text notice to staff panels.
func BroadcastStaffNotification(message string) {
	broadcast(Message{
		Event: EventStaffNotif,
		Data:  message,
	})
}

// BroadcastDashboardUpdate refreshes admin dashboards.
func BroadcastDashboardUpdate(data interface{}) {
	broadcast(Message{
		Event: EventDashboard,
		Data:  data,
	})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn, role := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending %s event to %s client: %v", msg.Event, role, err)
			continue
		}
	}
}
