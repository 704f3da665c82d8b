package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assocworks/member-chat/filter"
	"github.com/assocworks/member-chat/persistence"
	"github.com/assocworks/member-chat/types"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
)

var (
	ErrNotRegistered = errors.New("connection not registered")
	ErrUnknownEvent  = errors.New("unknown event")
	ErrMissingRoom   = errors.New("missing room id")
	ErrEmptyMessage  = errors.New("empty message content")
	ErrRoomNotFound  = errors.New("room not found")
	ErrNoPersistence = errors.New("no persistence configured")
	ErrNotAdmin      = errors.New("admin only")
)

// Handler is the uniform signature of all inbound event handlers.
type Handler func(s Session, payload json.RawMessage) error

// Router is the single dispatch point for inbound events. It maps each
// event kind to the component call and produces the outbound broadcasts.
// Handlers run on the calling connection's read goroutine, so a pending
// persistence call blocks only that connection, never the process-wide
// event stream; room broadcast order therefore equals persistence
// completion order.
//
// All handler errors are resolved here into a sender-only error notice,
// none propagate to crash the process.
type Router struct {
	log         hclog.Logger
	registry    *Registry
	rooms       *RoomTable
	typing      *TypingTracker
	store       persistence.Persister
	historySize int
	sweepEvery  time.Duration
	adminUser   string
	handlers    map[string]Handler
}

func NewRouter(log hclog.Logger, registry *Registry, rooms *RoomTable, typing *TypingTracker, store persistence.Persister, historySize int, sweepEvery time.Duration, adminUser string) *Router {
	r := &Router{
		log:         log,
		registry:    registry,
		rooms:       rooms,
		typing:      typing,
		store:       store,
		historySize: historySize,
		sweepEvery:  sweepEvery,
		adminUser:   adminUser,
	}
	r.handlers = map[string]Handler{
		types.EventJoinRoom:      r.handleJoinRoom,
		types.EventLeaveRoom:     r.handleLeaveRoom,
		types.EventMessage:       r.handleMessage,
		types.EventDirectMessage: r.handleDirectMessage,
		types.EventTyping:        r.handleTyping,
		types.EventMessageRead:   r.handleMessageRead,
		types.EventAdminNotice:   r.handleAdminNotice,
	}
	return r
}

// Connect registers an authenticated connection and broadcasts the updated
// presence set to every live connection, the new one included.
func (r *Router) Connect(s Session) {
	r.registry.Register(s)
	r.log.Debug("connection registered", "connection", s.ID(), "user", s.User().Id)
	r.broadcastPresence()
}

// Disconnect is the only cancellation signal. It is idempotent and fully
// unwinds membership, typing and registry state regardless of which step
// was in progress.
func (r *Router) Disconnect(s Session) {
	r.rooms.Drop(s)
	for _, roomId := range r.typing.DropUser(s.User().Id) {
		r.broadcastTyping(roomId)
	}
	registered, last := r.registry.Unregister(s)
	if !registered {
		return
	}
	r.log.Debug("connection unregistered", "connection", s.ID(), "user", s.User().Id)
	if last {
		r.broadcastPresence()
		r.persistLastOnline(s.User())
	}
}

// Dispatch routes one inbound event. Events from unregistered connections
// and events with violated preconditions are dropped with no broadcast; the
// originating connection gets a local error notice.
func (r *Router) Dispatch(s Session, msg types.WebsocketMessage) {
	handler, ok := r.handlers[msg.Event]
	if !ok {
		r.fail(s, msg.Event, ErrUnknownEvent)
		return
	}
	if !r.registry.Registered(s) {
		r.log.Debug("dropping event from unregistered connection", "event", msg.Event, "connection", s.ID())
		r.fail(s, msg.Event, ErrNotRegistered)
		return
	}
	if err := handler(s, msg.Data); err != nil {
		r.log.Debug("event handler failed", "event", msg.Event, "user", s.User().Id, "error", err)
		r.fail(s, msg.Event, err)
	}
}

// Run drives the periodic typing-expiry sweep until the context is done.
func (r *Router) Run(ctx context.Context) error {
	runner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := runner.AddFunc(fmt.Sprintf("@every %s", r.sweepEvery), func() {
		for _, roomId := range r.typing.Sweep() {
			r.broadcastTyping(roomId)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	runner.Start()
	defer runner.Stop()
	<-ctx.Done()
	return ctx.Err()
}

type joinRoomPayload struct {
	RoomId int64 `mapstructure:"roomId"`
}

func (r *Router) handleJoinRoom(s Session, payload json.RawMessage) error {
	p := joinRoomPayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.RoomId == 0 {
		return ErrMissingRoom
	}
	if r.store != nil {
		room := types.Room{Id: p.RoomId}
		if err := r.store.GetRoom(&room); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("store.GetRoom: %w", err)
		}
	}
	r.rooms.Join(s, p.RoomId)

	history := make([]types.Message, 0)
	if r.store != nil {
		h, err := r.store.History(p.RoomId, r.historySize)
		if err != nil {
			r.log.Error("could not load message history", "room", p.RoomId, "error", err)
		} else {
			history = h
		}
	}
	return s.Send(types.EventMessageHistory, types.HistoryPayload{RoomId: p.RoomId, Messages: history})
}

func (r *Router) handleLeaveRoom(s Session, payload json.RawMessage) error {
	p := joinRoomPayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.RoomId == 0 {
		return ErrMissingRoom
	}
	r.rooms.Leave(s, p.RoomId)
	return nil
}

type messagePayload struct {
	RoomId  int64  `mapstructure:"roomId"`
	Content string `mapstructure:"content"`
	Filter  string `mapstructure:"filter"`
}

func (r *Router) handleMessage(s Session, payload json.RawMessage) error {
	p := messagePayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.RoomId == 0 {
		return ErrMissingRoom
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyMessage
	}
	if r.store == nil {
		return ErrNoPersistence
	}
	prog, err := filter.Compile(p.Filter)
	if err != nil {
		return fmt.Errorf("filter.Compile: %w", err)
	}

	msg := &types.Message{RoomId: p.RoomId, UserId: s.User().Id, Content: p.Content}
	if err := r.store.AppendMessage(msg); err != nil {
		// at-most-once: a message that failed persistence is never broadcast
		return fmt.Errorf("store.AppendMessage: %w", err)
	}

	sender := s.User()
	r.rooms.Broadcast(p.RoomId, types.EventMessage, msg, func(target Session) bool {
		return filter.Run(prog, p.RoomId, types.EventMessage, sender, target.User())
	})
	return nil
}

type directMessagePayload struct {
	ReceiverId string            `mapstructure:"receiverId"`
	Content    string            `mapstructure:"content"`
	Type       string            `mapstructure:"type"`
	Metadata   map[string]string `mapstructure:"metadata"`
}

func (r *Router) handleDirectMessage(s Session, payload json.RawMessage) error {
	p := directMessagePayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.ReceiverId == "" {
		return errors.New("missing receiver id")
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyMessage
	}
	if r.store == nil {
		return ErrNoPersistence
	}
	if p.Type == "" {
		p.Type = "text"
	}

	dm := &types.DirectMessage{
		SenderId:   s.User().Id,
		ReceiverId: p.ReceiverId,
		Content:    p.Content,
		Type:       p.Type,
		Metadata:   p.Metadata,
	}
	if err := r.store.AppendDirectMessage(dm); err != nil {
		return fmt.Errorf("store.AppendDirectMessage: %w", err)
	}

	for _, target := range r.registry.SessionsFor(dm.ReceiverId) {
		_ = target.Send(types.EventDirectMessage, dm)
	}
	if dm.ReceiverId != dm.SenderId {
		// echo to the sender's connections so multi-device views stay in sync
		for _, target := range r.registry.SessionsFor(dm.SenderId) {
			_ = target.Send(types.EventDirectMessage, dm)
		}
	}
	return nil
}

type typingPayload struct {
	RoomId   int64 `mapstructure:"roomId"`
	IsTyping bool  `mapstructure:"isTyping"`
}

func (r *Router) handleTyping(s Session, payload json.RawMessage) error {
	p := typingPayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.RoomId == 0 {
		return ErrMissingRoom
	}
	r.typing.SetTyping(p.RoomId, s.User().Id, p.IsTyping)
	r.broadcastTyping(p.RoomId)
	return nil
}

type messageReadPayload struct {
	MessageId int64 `mapstructure:"messageId"`
}

func (r *Router) handleMessageRead(s Session, payload json.RawMessage) error {
	p := messageReadPayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if r.store == nil {
		return ErrNoPersistence
	}
	dm, changed, err := r.store.MarkDirectMessageRead(p.MessageId)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("%w: message %d", persistence.ErrNotFound, p.MessageId)
		}
		return fmt.Errorf("store.MarkDirectMessageRead: %w", err)
	}
	if !changed {
		// already read, idempotent no-op
		return nil
	}
	receipt := types.ReadReceiptPayload{MessageId: dm.Id, ReaderId: s.User().Id}
	for _, target := range r.registry.SessionsFor(dm.SenderId) {
		_ = target.Send(types.EventMessageRead, receipt)
	}
	return nil
}

type adminNoticePayload struct {
	Content string `mapstructure:"content"`
	Filter  string `mapstructure:"filter"`
}

// handleAdminNotice broadcasts an announcement from the configured admin
// user to every online connection, room membership regardless. Anyone else
// attempting it is rejected.
func (r *Router) handleAdminNotice(s Session, payload json.RawMessage) error {
	if r.adminUser == "" || s.User().Id != r.adminUser {
		return ErrNotAdmin
	}
	p := adminNoticePayload{}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyMessage
	}
	prog, err := filter.Compile(p.Filter)
	if err != nil {
		return fmt.Errorf("filter.Compile: %w", err)
	}

	sender := s.User()
	notice := types.NoticePayload{SenderId: sender.Id, Content: p.Content}
	for _, target := range r.registry.Sessions() {
		if !filter.Run(prog, 0, types.EventAdminNotice, sender, target.User()) {
			continue
		}
		_ = target.Send(types.EventAdminNotice, notice)
	}
	return nil
}

func (r *Router) broadcastTyping(roomId int64) {
	data := types.TypingPayload{RoomId: roomId, Users: r.typing.Typing(roomId)}
	r.rooms.Broadcast(roomId, types.EventUserTyping, data, nil)
}

func (r *Router) broadcastPresence() {
	data := types.OnlineUsersPayload{Users: r.registry.OnlineUsers()}
	for _, s := range r.registry.Sessions() {
		_ = s.Send(types.EventOnlineUsers, data)
	}
}

func (r *Router) persistLastOnline(user *types.User) {
	if r.store == nil {
		return
	}
	u := *user
	u.LastOnline = time.Now().In(time.UTC)
	if err := r.store.StoreUser(u); err != nil {
		r.log.Error("could not persist last online", "user", u.Id, "error", err)
	}
}

func (r *Router) fail(s Session, event string, err error) {
	_ = s.Send(types.EventError, types.ErrorPayload{Event: event, Error: err.Error()})
}

// decode follows the wire convention: the payload is generic JSON, weakly
// decoded into the typed payload struct.
func decode(payload json.RawMessage, out interface{}) error {
	m := make(map[string]interface{})
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
	}
	if err := mapstructure.WeakDecode(m, out); err != nil {
		return fmt.Errorf("mapstructure.WeakDecode: %w", err)
	}
	return nil
}
