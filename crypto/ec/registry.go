package ec

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Curve{}
)

var sm2p256v1 Curve

func init() {
	c, err := NewWeierstrass(sm2Params())
	if err != nil {
		panic(err)
	}
	sm2p256v1 = c
	registry["sm2p256v1"] = c
	registry["sm2-best"] = c
	registry[p256Curve.params.Name] = p256Curve
}

func sm2Params() *Params {
	hex := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 16)
		if !ok {
			panic("ec: bad constant " + s)
		}
		return v
	}
	return &Params{
		Name:    "sm2p256v1",
		P:       hex("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF"),
		A:       hex("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFC"),
		B:       hex("28E9FA9E9D9F5E344D5A9E4BCF6509A7F39789F515AB8F92DDBCBD414D940E93"),
		Gx:      hex("32C4AE2C1F1981195F9904466A39C9948FE30BBFF2660BE1715A4589334C74C7"),
		Gy:      hex("BC3736A2F4F6779C59BDCEE36B692153D0A9877CC62A474002DF32E52139F0A0"),
		N:       hex("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123"),
		H:       big.NewInt(1),
		BitSize: 256,
	}
}

// SM2P256V1 returns the recommended SM2 curve of GB/T 32918.5, also
// registered as "sm2-best".
func SM2P256V1() Curve {
	return sm2p256v1
}

// ByName looks up a registered curve.
func ByName(name string) (Curve, error) {
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCurve, name)
	}
	return c, nil
}

// Register makes a curve available to ByName. Existing names, including the
// built-in ones, cannot be replaced.
func Register(name string, c Curve) error {
	if name == "" || c == nil {
		return fmt.Errorf("%w: empty name or nil curve", ErrInvalidParams)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateCurve, name)
	}
	registry[name] = c
	return nil
}

// Names lists the registered curve names in sorted order.
func Names() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}
