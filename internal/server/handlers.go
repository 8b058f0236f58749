// Package server exposes HTTP handlers, including the WebSocket upgrade,
// health check, and the built-in test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay performs no access control at this layer; connections are
	// accepted from any origin.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// WebSocketHandler returns the upgrade handler for the given hub. It
// upgrades the HTTP connection, registers a new Client, and starts the
// per-connection read and write pumps.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// HealthHandler provides a simple health check endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}

// TestPageHandler serves an HTML page for exercising the relay by hand:
// register a name, send messages, watch typing indicators and seen updates.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 250px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; cursor: pointer; }
        #typing { color: #888; font-style: italic; min-height: 1em; }
    </style>
</head>
<body>
    <h1>Chat Relay Test</h1>
    <div>
        <input type="text" id="nameInput" placeholder="Display name...">
        <button onclick="register()">Register</button>
    </div>
    <div id="messages"></div>
    <div id="typing"></div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <script>
        let name = 'anonymous';
        const ws = new WebSocket('ws://' + location.host + '/api/socket');
        const messagesDiv = document.getElementById('messages');
        const typingDiv = document.getElementById('typing');
        const messageInput = document.getElementById('messageInput');

        function emit(event, data) {
            ws.send(JSON.stringify({ event: event, data: data }));
        }

        ws.onmessage = function(e) {
            const frame = JSON.parse(e.data);
            if (frame.event === 'receiveMessage') {
                const m = frame.data;
                const div = document.createElement('div');
                div.textContent = '[' + m.time + '] ' + m.sender + ': ' + m.text;
                messagesDiv.appendChild(div);
                messagesDiv.scrollTop = messagesDiv.scrollHeight;
                typingDiv.textContent = '';
                emit('messageSeen', { messageId: m.id, user: name });
            } else if (frame.event === 'userTyping') {
                typingDiv.textContent = frame.data + ' is typing...';
                setTimeout(function() { typingDiv.textContent = ''; }, 2000);
            } else if (frame.event === 'messageSeenUpdate') {
                console.log('seen', frame.data.messageId, 'by', frame.data.user);
            }
        };

        function register() {
            name = document.getElementById('nameInput').value || 'anonymous';
            emit('registerUser', name);
        }

        function sendMessage() {
            const text = messageInput.value;
            if (!text) return;
            emit('sendMessage', { sender: name, text: text });
            messageInput.value = '';
        }

        messageInput.addEventListener('input', function() {
            emit('typing', name);
        });
        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') sendMessage();
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
