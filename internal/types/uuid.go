package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex tier_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_TIER          = "tier"
	UUID_PREFIX_USER          = "user"
	UUID_PREFIX_USER_TIER     = "link"
	UUID_PREFIX_OVERRIDE      = "ovr"
	UUID_PREFIX_COUPON        = "coupon"
	UUID_PREFIX_COUPON_USAGE  = "cpnuse"
	UUID_PREFIX_WEBHOOK_EVENT = "whevt"
)
