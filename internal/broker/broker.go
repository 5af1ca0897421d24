// Package broker implements the pipeline's shared stream-log abstraction
// (append, consumer-group read, acknowledge, pending/claim recovery, and
// stream introspection) over Redis Streams.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/hey-raven/o11y"
)

// Entry is one stream record: its id and field map. Fields mirror exactly
// what was appended — consumers decode them with streamtypes.Decode.
type Entry struct {
	ID     string
	Fields map[string]string
}

// PendingEntry describes one unacknowledged delivery, as returned by
// Pending.
type PendingEntry struct {
	ID         string
	Consumer   string
	Idle       time.Duration
	Deliveries int64
}

// StreamInfo summarizes a stream's length and id range.
type StreamInfo struct {
	Length  int64
	FirstID string
	LastID  string
}

// GroupInfo summarizes one consumer group attached to a stream.
type GroupInfo struct {
	Name            string
	Consumers       int64
	Pending         int64
	LastDeliveredID string
}

// Client wraps a Redis client with the operations every pipeline stage's
// processing loop needs.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing Redis client. The caller owns rdb's lifecycle.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Append adds a new entry to stream and returns its assigned id.
func (c *Client) Append(ctx context.Context, stream string, fields map[string]string) (string, error) {
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("broker: append %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates group on stream (and the stream itself, if absent),
// positioned to deliver only entries appended after group creation. It is
// a no-op if the group already exists.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("broker: ensure group %s/%s: %w", stream, group, err)
	}
	return nil
}

// ReadGroup reads up to count new or previously-undelivered entries for
// consumer in group, blocking up to block for new arrivals.
func (c *Client) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("broker: read_group %s/%s: %w", stream, group, err)
	}

	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, Entry{ID: msg.ID, Fields: stringify(msg.Values)})
		}
	}
	return entries, nil
}

// Ack acknowledges id in group on stream.
func (c *Client) Ack(ctx context.Context, stream, group, id string) error {
	if err := c.rdb.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("broker: ack %s/%s/%s: %w", stream, group, id, err)
	}
	return nil
}

// Pending lists in-flight (delivered, unacknowledged) entries for group on
// stream.
func (c *Client) Pending(ctx context.Context, stream, group string) ([]PendingEntry, error) {
	ext, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  1000,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: pending %s/%s: %w", stream, group, err)
	}

	out := make([]PendingEntry, 0, len(ext))
	for _, p := range ext {
		out = append(out, PendingEntry{
			ID:         p.ID,
			Consumer:   p.Consumer,
			Idle:       p.Idle,
			Deliveries: p.RetryCount,
		})
	}
	return out, nil
}

// Claim transfers entries idle for at least minIdle to consumer, for
// redelivery after a crashed peer left them pending.
func (c *Client) Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration) ([]Entry, error) {
	var entries []Entry
	start := "0"
	for {
		messages, cursor, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("broker: claim %s/%s: %w", stream, group, err)
		}
		for _, msg := range messages {
			entries = append(entries, Entry{ID: msg.ID, Fields: stringify(msg.Values)})
		}
		if cursor == "0" || len(messages) == 0 {
			break
		}
		start = cursor
	}
	return entries, nil
}

// StreamInfo reports stream's length and id range.
func (c *Client) StreamInfo(ctx context.Context, stream string) (StreamInfo, error) {
	info, err := c.rdb.XInfoStream(ctx, stream).Result()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("broker: stream_info %s: %w", stream, err)
	}
	return StreamInfo{
		Length:  info.Length,
		FirstID: info.FirstEntry.ID,
		LastID:  info.LastGeneratedID,
	}, nil
}

// GroupInfo reports every consumer group attached to stream.
func (c *Client) GroupInfo(ctx context.Context, stream string) ([]GroupInfo, error) {
	groups, err := c.rdb.XInfoGroups(ctx, stream).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: group_info %s: %w", stream, err)
	}
	out := make([]GroupInfo, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		})
	}
	return out, nil
}

// DeadLetterStream returns the name of stream's dead-letter stream.
func DeadLetterStream(stream string) string {
	return stream + ".dlq"
}

// DeadLetter acknowledges id (so it is never redelivered) and appends a
// copy of its fields to stream's dead-letter stream, annotated with why.
func (c *Client) DeadLetter(ctx context.Context, stream, group string, entry Entry, stageName, reason string, deliveries int64) error {
	dlqFields := make(map[string]string, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		dlqFields[k] = v
	}
	dlqFields["dlq_reason"] = reason
	dlqFields["dlq_stage"] = stageName
	dlqFields["dlq_deliveries"] = fmt.Sprintf("%d", deliveries)

	if _, err := c.Append(ctx, DeadLetterStream(stream), dlqFields); err != nil {
		return fmt.Errorf("broker: dead letter %s/%s: %w", stream, entry.ID, err)
	}
	o11y.Counter(ctx, fmt.Sprintf("broker.%s.dead_letter_count", stageName), 1)
	return c.Ack(ctx, stream, group, entry.ID)
}

func stringify(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}
