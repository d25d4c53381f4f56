package ids

import "github.com/segmentio/ksuid"

// New returns a sortable 27-char entity id.
func New() string {
	return ksuid.New().String()
}
