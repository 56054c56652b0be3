package server

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/events"
)

// ErrClosed is returned once a match has been shut down.
var ErrClosed = errors.New("match closed")

// match owns one authoritative session. Every read or write of the session
// and of the client set happens on the run goroutine.
type match struct {
	id    string
	title string
	log   *zap.Logger

	ops  chan func()
	quit chan struct{}
	done chan struct{}

	sess    *engine.Session
	clients map[*client]struct{}
	stop    []func()
}

func newMatch(id, title string, sess *engine.Session, log *zap.Logger, stop ...func()) *match {
	m := &match{
		id:      id,
		title:   title,
		log:     log.With(zap.String("match", id)),
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		sess:    sess,
		clients: map[*client]struct{}{},
		stop:    stop,
	}
	sub := sess.Subscribe(events.GameAction, func(ev events.Event) {
		m.broadcast(serverMessage{Type: msgAction, Index: len(sess.History()) - 1, Action: ev.Action})
	})
	m.stop = append(m.stop, func() { sess.Unsubscribe(sub) })
	go m.run()
	return m
}

func (m *match) run() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.ops:
			fn()
		case <-m.quit:
			for _, stop := range m.stop {
				stop()
			}
			for c := range m.clients {
				m.drop(c)
			}
			return
		}
	}
}

// do runs fn on the match goroutine and waits for it.
func (m *match) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case m.ops <- func() { fn(); close(finished) }:
	case <-m.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (m *match) close() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	<-m.done
}

// dispatch applies an action and, when from is set, answers that client.
func (m *match) dispatch(ctx context.Context, from *client, seq uint64, a actionEnvelope) error {
	var err error
	doErr := m.do(ctx, func() {
		if from != nil && from.player != "" && a.playerID() != from.player {
			err = errForeignPlayer
		} else {
			err = m.sess.Dispatch(ctx, a.SerializedAction)
		}
		if err != nil {
			m.log.Debug("action rejected", zap.String("action", a.Type), zap.Error(err))
		}
		if from == nil || seq == 0 {
			return
		}
		if err != nil {
			code, _ := classify(err)
			m.send(from, serverMessage{Type: msgReject, Seq: seq, Code: code, Reason: err.Error()})
			return
		}
		m.send(from, serverMessage{Type: msgAck, Seq: seq})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// join registers c and sends it the replayable setup.
func (m *match) join(ctx context.Context, c *client) error {
	return m.do(ctx, func() {
		m.clients[c] = struct{}{}
		setup := m.sess.Setup()
		m.send(c, serverMessage{Type: msgSetup, Setup: &setup})
		m.log.Info("client joined", zap.String("player", c.player), zap.Int("clients", len(m.clients)))
	})
}

func (m *match) leave(ctx context.Context, c *client) {
	_ = m.do(ctx, func() {
		if _, ok := m.clients[c]; ok {
			m.drop(c)
			m.log.Info("client left", zap.String("player", c.player), zap.Int("clients", len(m.clients)))
		}
	})
}

func (m *match) broadcast(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.log.Error("marshal broadcast", zap.Error(err))
		return
	}
	for c := range m.clients {
		m.write(c, data)
	}
}

func (m *match) send(c *client, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.log.Error("marshal message", zap.Error(err))
		return
	}
	m.write(c, data)
}

// write queues data for c. A client that cannot keep up is dropped.
func (m *match) write(c *client, data []byte) {
	if _, ok := m.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		m.log.Warn("client too slow, dropping", zap.String("player", c.player))
		m.drop(c)
	}
}

func (m *match) drop(c *client) {
	delete(m.clients, c)
	close(c.send)
}
