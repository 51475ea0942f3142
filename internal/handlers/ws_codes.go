// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handler. These give clients a
// more specific reason for closure than the standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidPacketError  = 3001 // Client sent a packet the read pump could not interpret.
	RoomNotJoinedError  = 3002 // Client sent a game action before creating or joining a room.
)
