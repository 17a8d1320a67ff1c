// Package funds abstracts where physical currency lives. The engine never
// touches inventories itself; it asks a Gateway to move whole currency
// units and a Directory to resolve actor display labels.
package funds

// Gateway moves physical currency between an actor and the outside world.
// Amounts are whole currency units: the engine truncates its exact decimal
// amounts toward zero before crossing this boundary.
type Gateway interface {
	// Held returns how many units of the configured currency the actor
	// currently holds, for deposit checks.
	Held(actorID string) (int64, error)
	// Take removes units from the actor's holdings.
	Take(actorID string, units int64) error
	// Give delivers units to the actor. An error means the delivery was
	// rejected, e.g. the destination has no capacity.
	Give(actorID string, units int64) error
}

// Directory resolves an actor id to a display label. ok is false when the
// actor is not currently resolvable (offline); callers must tolerate that
// without failing the surrounding operation.
type Directory interface {
	Resolve(actorID string) (label string, ok bool)
}
