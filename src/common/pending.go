package common

import (
	"context"
	"encoding/json"
	"errors"
	"ets/src/config"
	"ets/src/lib"
	"ets/src/types"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func pendingSelectionKey(orderID uuid.UUID) string {
	return fmt.Sprintf("checkout:%s:selection", orderID.String())
}

// PutPendingSelection writes the attendee's chosen lines to the shared
// cache under the order ID. The entry is the only copy; there is no
// process-local mirror, so any instance can serve the settlement.
func PutPendingSelection(ctx context.Context, sel *types.PendingSelection) error {
	rd := lib.GetRedisClient()
	b, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	ttl := time.Duration(config.PENDING_SELECTION_TTL_MINUTES) * time.Minute
	if err := rd.SetEx(ctx, pendingSelectionKey(sel.OrderID), string(b), ttl).Err(); err != nil {
		log.Printf("[checkout] Error caching selection for order %s: %s\n", sel.OrderID, err.Error())
		return err
	}
	return nil
}

// GetPendingSelection returns nil without error when the entry has
// expired or was never written; that is an expected state, not a fault.
func GetPendingSelection(ctx context.Context, orderID uuid.UUID) (*types.PendingSelection, error) {
	rd := lib.GetRedisClient()
	val, err := rd.Get(ctx, pendingSelectionKey(orderID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sel types.PendingSelection
	if err := json.Unmarshal([]byte(val), &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

func DeletePendingSelection(ctx context.Context, orderID uuid.UUID) {
	rd := lib.GetRedisClient()
	if err := rd.Del(ctx, pendingSelectionKey(orderID)).Err(); err != nil {
		log.Printf("[checkout] Error evicting selection for order %s: %s\n", orderID, err.Error())
	}
}
