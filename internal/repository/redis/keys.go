package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "rafflego:v1"

func KeyRaffleSummary(raffleID int64) string {
	return fmt.Sprintf("%s:raffle:%d:summary", ns, raffleID)
}

func KeyRaffleStatistics(raffleID int64) string {
	return fmt.Sprintf("%s:raffle:%d:statistics", ns, raffleID)
}

func KeyOrder(orderID uuid.UUID) string {
	return fmt.Sprintf("%s:order:%s", ns, orderID)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemOrder(idemKey string) string {
	return fmt.Sprintf("%s:idem:orders:%s", ns, idemKey)
}

func ChannelRafflesChanged() string {
	return ns + ":raffles:changed"
}
