package service

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cuenta un request en la ventana actual del cliente. La clave ya trae el numero de
// ventana, asi que el TTL solo limpia; se deja el doble de la ventana por desfasajes de reloj.
const clientWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisLimiterTimeout = 500 * time.Millisecond

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisRateLimiter comparte la cuota por IP de cliente entre todas las instancias del proxy.
// Claves: chat:rl:<scope>:<ip>:<ventana>. Si Redis falla, el request pasa.
type redisRateLimiter struct {
	client redisEvaler
	scope  string
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedisRateLimiter limita a max requests por ventana; scope separa endpoints (el path del proxy).
func NewRedisRateLimiter(client *redis.Client, scope string, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	if window < time.Second {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRateLimiter{
		client: client,
		scope:  normalizeScope(scope),
		window: window,
		max:    max,
		now:    time.Now,
	}
}

func (l *redisRateLimiter) Allow(clientIP string) bool {
	if l == nil || l.client == nil {
		return true
	}
	ip := normalizeClientIP(clientIP)
	if ip == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()

	count, err := l.client.Eval(ctx, clientWindowScript, []string{l.windowKey(ip)}, (2 * l.window).Milliseconds()).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

func (l *redisRateLimiter) windowKey(ip string) string {
	bucket := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("chat:rl:%s:%s:%d", l.scope, ip, bucket)
}

// normalizeClientIP deja una forma canonica para que ::ffff:10.0.0.1 y 10.0.0.1 compartan cuota.
func normalizeClientIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return strings.ToLower(raw)
}

func normalizeScope(scope string) string {
	scope = strings.Trim(strings.TrimSpace(scope), "/")
	if scope == "" {
		return "default"
	}
	return strings.ReplaceAll(scope, "/", ".")
}
