package device

import "github.com/kendryte-hacks/k230boot/pkg/k230"

// Backend is a claimed recovery device: the protocol transport plus the
// session lifecycle around it. Exactly one backend is open per process; it
// is held until exit.
type Backend interface {
	k230.Transport
	// Name returns a name and maybe some extra info about this backend. This
	// info is not machine readable.
	Name() string
	Close() error
}
