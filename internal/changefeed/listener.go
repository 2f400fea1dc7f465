// Package changefeed streams row-level changes of the orders table using
// postgres LISTEN/NOTIFY.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change is one notification emitted by the orders trigger.
type Change struct {
	Op         string     `json:"op"`
	ID         uuid.UUID  `json:"id"`
	CreatedBy  uuid.UUID  `json:"createdBy"`
	AssignedTo *uuid.UUID `json:"assignedTo"`
}

// Decode parses a trigger payload.
func Decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode change payload: %w", err)
	}
	if c.ID == uuid.Nil {
		return Change{}, fmt.Errorf("change payload without id")
	}
	return c, nil
}

// TriggerStatements returns the DDL that makes every insert, update and
// delete on orders publish a Change on channel.
func TriggerStatements(channel string) []string {
	lit := strings.ReplaceAll(channel, "'", "''")
	return []string{
		`CREATE OR REPLACE FUNCTION orders_change_notify() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('` + lit + `', json_build_object(
		'op', lower(TG_OP),
		'id', rec.id,
		'createdBy', rec.created_by,
		'assignedTo', rec.assigned_to
	)::text);
	RETURN rec;
END;
$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS orders_change_notify ON orders`,
		`CREATE TRIGGER orders_change_notify AFTER INSERT OR UPDATE OR DELETE ON orders
	FOR EACH ROW EXECUTE FUNCTION orders_change_notify()`,
	}
}

// Listener holds one dedicated connection per Listen call.
type Listener struct {
	databaseURL string
	channel     string
	log         *zap.Logger
}

func NewListener(databaseURL, channel string, log *zap.Logger) *Listener {
	return &Listener{databaseURL: databaseURL, channel: channel, log: log}
}

// Listen blocks, passing every decoded change to handle, until ctx is done
// or the connection fails. It always returns a non-nil error.
func (l *Listener) Listen(ctx context.Context, handle func(Change)) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect change feed: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.log.Info("change feed listening", zap.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("change feed closed: %w", err)
		}
		change, err := Decode(n.Payload)
		if err != nil {
			l.log.Warn("skipping change notification", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		handle(change)
	}
}
