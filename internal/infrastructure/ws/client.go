package ws

import (
	"log"

	"github.com/gorilla/websocket"
)

// Client is one live connection. Its id doubles as the participant's
// connection id in every room it joins.
type Client struct {
	conn    *connWrapper
	Message chan *Message
	ID      string `json:"id"`
}

func NewClient(conn *websocket.Conn, id string) *Client {
	return &Client{
		conn:    newConnWrapper(conn),
		Message: make(chan *Message, 64), // buffered to avoid dead-locks on slow clients
		ID:      id,
	}
}

// ReadMessage pumps inbound frames into the core. Frames that are not valid
// JSON envelopes are answered with an error to this connection only; they
// never reach the core. The transport drop itself is reported to the core as
// the final event, on the same channel as the frames that preceded it.
func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.dispatch(event{client: c, kind: disconnected})
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			break
		}

		env, err := decodeEnvelope(raw)
		if err != nil {
			c.enqueue(NewError("", "invalid message"))
			continue
		}

		core.dispatch(event{client: c, kind: frame, envelope: env})
	}
}

// WriteMessage drains the outbound queue onto the wire. It exits when the
// queue is closed by the core's disconnect teardown, or on a write error.
func (c *Client) WriteMessage() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.Message {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error (client %s): %v", c.ID, err)
			break
		}
	}
}

// enqueue hands msg to the write pump, dropping it if the client cannot
// keep up. Delivery is fire-and-forget.
func (c *Client) enqueue(msg *Message) {
	select {
	case c.Message <- msg:
	default:
		log.Printf("client %s buffer full, dropping %s", c.ID, msg.Type)
	}
}
