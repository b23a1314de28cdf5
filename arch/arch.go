// Package arch models the privileged operations that install an address
// space on the executing core: writing the root token into the active
// translation register and flushing the translation caches. The function
// variables default to a simulated register so the rest of the system
// runs off-target; a port overrides them with the real instructions.
package arch

var (
	activeRoot uint64

	// SetRootFn writes token into the active-translation register.
	SetRootFn = func(token uint64) { activeRoot = token }

	// FlushFn invalidates the core's address-translation caches.
	FlushFn = func() {}
)

// ActivateRoot installs token and flushes stale translations. The effect
// is global to the executing core; only the thread of control about to
// run in the target space may call this.
func ActivateRoot(token uint64) {
	SetRootFn(token)
	FlushFn()
}

// ActiveRoot reports the token most recently installed through the
// default SetRootFn.
func ActiveRoot() uint64 {
	return activeRoot
}
