package fetch

import (
	"crypto/rand"
	"math/big"
)

// DefaultUserAgents is a small set of current desktop browser identities.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36 Edg/128.0.0.0",
}

// UserAgentPool hands out User-Agent strings at random. Safe for concurrent use.
type UserAgentPool struct {
	uas []string
}

// NewUserAgentPool copies uas; an empty slice falls back to DefaultUserAgents.
func NewUserAgentPool(uas []string) *UserAgentPool {
	if len(uas) == 0 {
		uas = DefaultUserAgents
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &UserAgentPool{uas: copied}
}

// Random returns one pool entry chosen with crypto/rand.
func (p *UserAgentPool) Random() string {
	if p == nil || len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.uas[0]
	}
	return p.uas[n.Int64()]
}
