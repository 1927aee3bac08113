package dbhub

import "time"

// nowRFC3339 stamps migration bookkeeping rows. Schema application is an
// operator-driven, one-shot event (not part of the scheduling hot path), so
// reaching for wall-clock time directly here — rather than threading a
// clock.Clock through the migrator — keeps the interface small.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
