// Package pause implements the registry pause gate as a pure record
// transition.
package pause

import (
	"fmt"
	"time"

	"prism/go-router/internal/identity"
	"prism/go-router/internal/registry"
)

// SetPaused flips the pause gate. Pausing records the caller as pause
// authority along with the reason and timestamp; unpausing clears reason and
// timestamp but keeps the authority of the last pause. Setting the current
// value again succeeds and refreshes the recorded details.
func SetPaused(rec *registry.Record, caller identity.Handle, paused bool, reason string, now time.Time) error {
	if !caller.Signer {
		return fmt.Errorf("%w: caller must sign", registry.ErrUnauthorized)
	}
	if !rec.HasAuthority(caller.ID) {
		return fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.ID)
	}
	if err := registry.CheckPauseReason(reason); err != nil {
		return err
	}
	rec.Paused = paused
	if paused {
		at := now.Unix()
		rec.PausedAt = &at
		rec.PauseReason = reason
		rec.PauseAuthority = caller.ID
	} else {
		rec.PausedAt = nil
		rec.PauseReason = ""
	}
	return nil
}
