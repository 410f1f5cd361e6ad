package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// send formats and sends an event envelope to the WebSocket server.
func send(c *websocket.Conn, event string, data interface{}) error {
	env := envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		env.Data = raw
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, payload)
}

func main() {
	username := "tester"
	roomCode := ""
	if len(os.Args) > 1 {
		username = os.Args[1]
	}
	if len(os.Args) > 2 {
		roomCode = os.Args[2]
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var env envelope
			if err := json.Unmarshal(message, &env); err != nil {
				log.Printf("Received invalid envelope: %s", string(message))
				continue
			}
			log.Printf("<- RECV (%s): %s", env.Event, string(env.Data))
		}
	}()

	// Join a room automatically (empty roomCode creates a new one)
	log.Printf("Joining as %q...", username)
	if err := send(c, "join_room", map[string]string{"username": username, "roomCode": roomCode}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Commands: start | select <cardId> | solve <cardId> | target <playerId> | eliminate | state | msg <text> | ping")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			cmd, arg, _ := strings.Cut(strings.TrimSpace(text), " ")

			var err error
			switch cmd {
			case "":
				continue
			case "start":
				err = send(c, "start_game", nil)
			case "select":
				err = send(c, "select_card", map[string]string{"cardId": arg})
			case "solve":
				// 提交判题直通码，便于联调
				err = send(c, "submit_solution", map[string]string{"cardId": arg, "code": "# DEBUG: Auto-complete"})
			case "target":
				err = send(c, "apply_targeted_debuff", map[string]string{"targetPlayerId": arg})
			case "eliminate":
				err = send(c, "player_eliminated", nil)
			case "state":
				err = send(c, "get_game_state", nil)
			case "msg":
				err = send(c, "test_message", map[string]string{"from": username, "message": arg})
			case "ping":
				err = send(c, "ping", nil)
			default:
				log.Printf("Unknown command: %s", cmd)
				continue
			}

			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", cmd)
		}
	}
}
