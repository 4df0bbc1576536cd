package model

import "picking-control.com/picking-control/internal/constants"

// Session identifies one live viewer connection. Never persisted; it exists
// only while the websocket is open.
type Session struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Role constants.Role `json:"role"`
}
