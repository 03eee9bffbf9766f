// Package item defines the contraband inventory a player carries between cities.
// This package is PURE and must NOT import any infrastructure packages.
package item

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoCapacity  = errors.New("not enough carry capacity")
	ErrNotEnough   = errors.New("not enough goods")
	ErrBadQuantity = errors.New("quantity must be positive")
)

// Stack is a quantity of a single good.
type Stack struct {
	GoodID   string `json:"good_id"`
	Quantity int    `json:"quantity"`
}

// Inventory holds goods keyed by good ID. Capacity is recomputed by the engine
// from skills and vehicles and is not authoritative on its own.
type Inventory struct {
	Goods    map[string]int `json:"goods"`
	Capacity int            `json:"capacity"`
}

// NewInventory creates an empty inventory.
func NewInventory(capacity int) Inventory {
	return Inventory{Goods: make(map[string]int), Capacity: capacity}
}

// Used returns the number of units carried.
func (inv *Inventory) Used() int {
	n := 0
	for _, q := range inv.Goods {
		n += q
	}
	return n
}

// Free returns the remaining capacity.
func (inv *Inventory) Free() int {
	f := inv.Capacity - inv.Used()
	if f < 0 {
		return 0
	}
	return f
}

// Count returns how many units of a good are carried.
func (inv *Inventory) Count(goodID string) int {
	return inv.Goods[goodID]
}

// Add stores qty units, refusing when capacity would be exceeded.
func (inv *Inventory) Add(goodID string, qty int) error {
	if qty <= 0 {
		return ErrBadQuantity
	}
	if qty > inv.Free() {
		return fmt.Errorf("%w: %d free, %d requested", ErrNoCapacity, inv.Free(), qty)
	}
	if inv.Goods == nil {
		inv.Goods = make(map[string]int)
	}
	inv.Goods[goodID] += qty
	return nil
}

// Remove takes qty units out.
func (inv *Inventory) Remove(goodID string, qty int) error {
	if qty <= 0 {
		return ErrBadQuantity
	}
	if inv.Goods[goodID] < qty {
		return fmt.Errorf("%w: have %d %s", ErrNotEnough, inv.Goods[goodID], goodID)
	}
	inv.Goods[goodID] -= qty
	if inv.Goods[goodID] == 0 {
		delete(inv.Goods, goodID)
	}
	return nil
}

// Clear empties the inventory and returns what was confiscated.
func (inv *Inventory) Clear() []Stack {
	out := inv.Stacks()
	inv.Goods = make(map[string]int)
	return out
}

// Stacks returns the contents sorted by good ID.
func (inv *Inventory) Stacks() []Stack {
	out := make([]Stack, 0, len(inv.Goods))
	for id, q := range inv.Goods {
		out = append(out, Stack{GoodID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoodID < out[j].GoodID })
	return out
}

// Clone returns a deep copy.
func (inv Inventory) Clone() Inventory {
	c := Inventory{Goods: make(map[string]int, len(inv.Goods)), Capacity: inv.Capacity}
	for k, v := range inv.Goods {
		c.Goods[k] = v
	}
	return c
}
