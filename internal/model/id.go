package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

// NewUserID builds a role-prefixed id: <role>_<unix millis>_<9 random chars>.
func NewUserID(role Role, now time.Time) string {
	tail := strings.ToLower(ksuid.New().String())
	return fmt.Sprintf("%s_%d_%s", role, now.UnixMilli(), tail[len(tail)-9:])
}
