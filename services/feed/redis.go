// Package feedsvc publishes record change events over Redis pub/sub and
// bridges them back into live list sources. One channel per collection,
// named "feed:<collection>".
package feedsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/livelist"
)

const channelPrefix = "feed:"

// envelope is the wire format of a change event.
type envelope struct {
	Op     core.ChangeOp   `json:"op"`
	Record json.RawMessage `json:"record"`
}

func encodeEvent(op core.ChangeOp, record interface{}) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "encoding change record")
	}
	data, err := json.Marshal(envelope{Op: op, Record: raw})
	if err != nil {
		return nil, errors.Wrap(err, "encoding change event")
	}
	return data, nil
}

func decodeEvent[T any](payload string) (livelist.Event[T], error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return livelist.Event[T]{}, errors.Wrap(err, "decoding change event")
	}
	var rec T
	if err := json.Unmarshal(env.Record, &rec); err != nil {
		return livelist.Event[T]{}, errors.Wrap(err, "decoding change record")
	}
	return livelist.Event[T]{Op: livelist.Op(env.Op), Record: rec}, nil
}

type RedisFeed struct {
	rdb *redis.Client
}

var _ core.ChangeFeed = (*RedisFeed)(nil)

func NewRedisFeed(conf core.RedisConfig) (*RedisFeed, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &RedisFeed{rdb: rdb}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, collection string, op core.ChangeOp, record interface{}) error {
	data, err := encodeEvent(op, record)
	if err != nil {
		return err
	}
	if err = f.rdb.Publish(ctx, channelPrefix+collection, data).Err(); err != nil {
		return errors.Wrap(err, "publishing change event")
	}
	return nil
}

func (f *RedisFeed) Close() error {
	return f.rdb.Close()
}

// subscribeFunc opens a raw payload stream for one channel. It returns
// the stream, a release func, or an error when the subscription could not
// be confirmed. The stream is closed when the subscription dies.
type subscribeFunc func(ctx context.Context) (<-chan string, func() error, error)

// subscribeRaw adapts redis pub/sub to a subscribeFunc; Receive confirms
// the subscription before the stream is handed out.
func (f *RedisFeed) subscribeRaw(channel string) subscribeFunc {
	return func(ctx context.Context) (<-chan string, func() error, error) {
		pubsub := f.rdb.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, nil, errors.Wrap(err, "subscribing to change feed")
		}

		payloads := make(chan string)
		stop := make(chan struct{})
		go func() {
			defer close(payloads)
			for msg := range pubsub.Channel() {
				select {
				case payloads <- msg.Payload:
				case <-stop:
					return
				}
			}
		}()
		release := func() error {
			close(stop)
			return pubsub.Close()
		}
		return payloads, release, nil
	}
}

// source adapts one collection's channel to livelist.Source. The bulk
// read is delegated so the list and the feed share a store.
type source[T any] struct {
	subscribe subscribeFunc
	queryAll  func(ctx context.Context) ([]T, error)
}

// NewSource returns a live list source for a collection backed by the
// given bulk reader and this feed's pub/sub channel.
func NewSource[T any](feed *RedisFeed, collection string, queryAll func(ctx context.Context) ([]T, error)) livelist.Source[T] {
	return &source[T]{
		subscribe: feed.subscribeRaw(channelPrefix + collection),
		queryAll:  queryAll,
	}
}

func (s *source[T]) QueryAll(ctx context.Context) ([]T, error) {
	return s.queryAll(ctx)
}

func (s *source[T]) Subscribe(ctx context.Context) (livelist.Subscription[T], error) {
	payloads, release, err := s.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	sub := &subscription[T]{
		payloads: payloads,
		release:  release,
		events:   make(chan livelist.Event[T]),
		done:     make(chan struct{}),
	}
	go sub.loop()
	return sub, nil
}

type subscription[T any] struct {
	payloads <-chan string
	release  func() error
	events   chan livelist.Event[T]
	done     chan struct{}
	err      error
}

func (s *subscription[T]) Events() <-chan livelist.Event[T] { return s.events }

func (s *subscription[T]) Err() error { return s.err }

func (s *subscription[T]) Close() error {
	close(s.done)
	return s.release()
}

// loop decodes raw payloads into typed events until the stream dies or
// the subscription is closed. A payload that fails to decode kills the
// stream; the consuming list then reports Stale with the decode error.
func (s *subscription[T]) loop() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case payload, ok := <-s.payloads:
			if !ok {
				return
			}
			ev, err := decodeEvent[T](payload)
			if err != nil {
				s.err = err
				return
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}
