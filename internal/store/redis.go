package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"parking-lot/internal/parking"

	"github.com/redis/go-redis/v9"
)

var _ parking.Store = (*Redis)(nil)

// KEYS[1] ticket hash, KEYS[2] open plate marker, KEYS[3] open set,
// KEYS[4] hash of the ticket the marker pointed at when the caller read it.
// ARGV: ticketId, licensePlate, parkingLotId, entryTime, marker value read.
// A marker only blocks the plate while its ticket is open for that plate.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 1
end
local owner = redis.call('GET', KEYS[2])
if owner then
	if owner ~= ARGV[5] then
		return 3
	end
	local held = redis.call('HMGET', KEYS[4], 'licensePlate', 'exitTime')
	if held[1] == ARGV[2] and not held[2] then
		return 2
	end
end
redis.call('HSET', KEYS[1], 'ticketId', ARGV[1], 'licensePlate', ARGV[2], 'parkingLotId', ARGV[3], 'entryTime', ARGV[4])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[1])
return 0
`)

// KEYS[1] ticket hash, KEYS[2] open set, KEYS[3] open plate marker.
// ARGV: ticketId, exitTime.
var closeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 1
end
if redis.call('HEXISTS', KEYS[1], 'exitTime') == 1 then
	return 2
end
redis.call('HSET', KEYS[1], 'exitTime', ARGV[2])
redis.call('SREM', KEYS[2], ARGV[1])
if redis.call('GET', KEYS[3]) == ARGV[1] then
	redis.call('DEL', KEYS[3])
end
return 0
`)

const (
	scriptOK        = 0
	scriptConflict  = 1
	scriptSecondary = 2
	scriptStale     = 3

	// markerReadAttempts bounds how often an insert rereads a plate marker
	// that changed between the read and the script.
	markerReadAttempts = 3
)

// Redis is a parking.Store on a Redis server. Each ticket is a hash; the
// conditional writes run as Lua scripts so they apply atomically.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "parking"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) ticketKey(id string) string { return fmt.Sprintf("%s:ticket:%s", r.prefix, id) }
func (r *Redis) plateKey(plate string) string {
	return fmt.Sprintf("%s:open_plate:%s", r.prefix, plate)
}
func (r *Redis) seqKey() string     { return fmt.Sprintf("%s:ticket_seq", r.prefix) }
func (r *Redis) openSetKey() string { return fmt.Sprintf("%s:open_tickets", r.prefix) }

func (r *Redis) FindOpenByPlate(ctx context.Context, plate string) (*parking.Ticket, error) {
	id, err := r.rdb.Get(ctx, r.plateKey(plate)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open plate %s: %w", plate, err)
	}

	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// a marker left behind by a ticket that is gone or closed does not count
	if t == nil || !t.IsOpen() || t.LicensePlate != plate {
		return nil, nil
	}
	return t, nil
}

func (r *Redis) AllocateID(ctx context.Context) (string, error) {
	n, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("incr ticket sequence: %w", err)
	}
	return formatID(n), nil
}

func (r *Redis) InsertIfAbsent(ctx context.Context, t parking.Ticket) error {
	plateKey := r.plateKey(t.LicensePlate)
	for attempt := 0; attempt < markerReadAttempts; attempt++ {
		owner, err := r.rdb.Get(ctx, plateKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("get open plate %s: %w", t.LicensePlate, err)
		}
		ownerKey := r.ticketKey(t.TicketID)
		if owner != "" {
			ownerKey = r.ticketKey(owner)
		}

		keys := []string{r.ticketKey(t.TicketID), plateKey, r.openSetKey(), ownerKey}
		res, err := insertScript.Run(ctx, r.rdb, keys,
			t.TicketID, t.LicensePlate, t.ParkingLotID, t.EntryTime, owner,
		).Int()
		if err != nil {
			return fmt.Errorf("insert ticket %s: %w", t.TicketID, err)
		}

		switch res {
		case scriptOK:
			return nil
		case scriptConflict:
			return parking.ErrTicketExists
		case scriptSecondary:
			return parking.ErrAlreadyParked
		case scriptStale:
			continue
		default:
			return fmt.Errorf("insert ticket %s: unexpected script result %d", t.TicketID, res)
		}
	}
	return fmt.Errorf("insert ticket %s: open plate marker for %s kept changing", t.TicketID, t.LicensePlate)
}

func (r *Redis) Get(ctx context.Context, ticketID string) (*parking.Ticket, error) {
	fields, err := r.rdb.HGetAll(ctx, r.ticketKey(ticketID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeTicket(fields)
}

func (r *Redis) CloseIfOpen(ctx context.Context, ticketID string, exitTime int64) (*parking.Ticket, error) {
	// the plate never changes once written, so it can be read ahead of the script
	plate, err := r.rdb.HGet(ctx, r.ticketKey(ticketID), "licensePlate").Result()
	if errors.Is(err, redis.Nil) {
		return nil, parking.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s plate: %w", ticketID, err)
	}

	keys := []string{r.ticketKey(ticketID), r.openSetKey(), r.plateKey(plate)}
	res, err := closeScript.Run(ctx, r.rdb, keys, ticketID, exitTime).Int()
	if err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", ticketID, err)
	}

	switch res {
	case scriptOK:
	case scriptConflict:
		return nil, parking.ErrTicketNotFound
	case scriptSecondary:
		return nil, parking.ErrAlreadyExited
	default:
		return nil, fmt.Errorf("close ticket %s: unexpected script result %d", ticketID, res)
	}

	// closed tickets are immutable, so reading back after the script is safe
	t, err := r.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, parking.ErrTicketNotFound
	}
	return t, nil
}

func (r *Redis) ListOpen(ctx context.Context) ([]parking.Ticket, error) {
	ids, err := r.rdb.SMembers(ctx, r.openSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.ticketKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}

	out := make([]parking.Ticket, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		t, err := decodeTicket(fields)
		if err != nil {
			return nil, err
		}
		if t.IsOpen() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func decodeTicket(fields map[string]string) (*parking.Ticket, error) {
	entry, err := strconv.ParseInt(fields["entryTime"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode ticket %s entryTime: %w", fields["ticketId"], err)
	}

	t := &parking.Ticket{
		TicketID:     fields["ticketId"],
		LicensePlate: fields["licensePlate"],
		ParkingLotID: fields["parkingLotId"],
		EntryTime:    entry,
	}
	if v, ok := fields["exitTime"]; ok {
		exit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode ticket %s exitTime: %w", t.TicketID, err)
		}
		t.ExitTime = &exit
	}
	return t, nil
}
