package domain

// Persona agrupa la voz del bot: instrucciones para el modelo y saludo inicial.
type Persona struct {
	Name         string         `toml:"name"`
	Instructions string         `toml:"instructions"`
	MinMessages  int            `toml:"min_messages"`
	MaxMessages  int            `toml:"max_messages"`
	Greeting     []PendingReply `toml:"greeting"`
}
