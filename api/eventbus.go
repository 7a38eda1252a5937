package api

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// EventType names a governance event broadcast over the /events
// websocket, mirroring the teacher's EventType constants
// (api/dao_server.go) renamed to this module's operations.
type EventType string

const (
	EventProposalCreated  EventType = "proposal_created"
	EventCounterProposed  EventType = "counter_proposed"
	EventVoteCast         EventType = "vote_cast"
	EventProposalApproved EventType = "proposal_approved"
	EventProposalRejected EventType = "proposal_rejected"
	EventProposalFinalized EventType = "proposal_finalized"
	EventBountyClaimed    EventType = "bounty_claimed"
	EventBountyDone       EventType = "bounty_done"
)

// Event is one message sent to every connected websocket client.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// EventBus fans out Event values to every connected websocket client,
// grounded on the teacher's EventBus (api/dao_server.go): a
// register/unregister/broadcast channel trio drained by a single run()
// goroutine, so client map mutation never races with a broadcast send.
type EventBus struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func newEventBus() *EventBus {
	return &EventBus{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (eb *EventBus) run() {
	for {
		select {
		case client := <-eb.register:
			eb.clients[client] = true
		case client := <-eb.unregister:
			if _, ok := eb.clients[client]; ok {
				delete(eb.clients, client)
				client.Close()
			}
		case message := <-eb.broadcast:
			for client := range eb.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(eb.clients, client)
					client.Close()
				}
			}
		}
	}
}

// Publish encodes and broadcasts ev to every connected client. Marshal
// errors are dropped rather than propagated: a malformed event is a bug
// in the caller, not something an HTTP handler's return value should
// surface to the request that triggered it.
func (eb *EventBus) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	eb.broadcast <- data
}
