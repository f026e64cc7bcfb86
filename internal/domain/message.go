package domain

import "time"

// Sender identifica quien escribio un mensaje.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Role devuelve el rol que espera el proveedor en el historial.
func (s Sender) Role() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// Message es una burbuja de la conversacion. Solo Visible cambia tras crearse, y una sola vez.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Visible   bool      `json:"visible"`
}
