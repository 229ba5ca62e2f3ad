package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/minidxo/internal/app/agentflow"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/app/triage"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

const DefaultRecallDepth = 3

var ErrEmptyMessage = errors.New("message text is empty")

// FailureKind classifies a failed turn.
type FailureKind string

const (
	FailureEngine     FailureKind = "engine"
	FailureEmptyReply FailureKind = "empty_reply"
	FailureToolLoop   FailureKind = "tool_loop"
)

// TurnFailure describes why the primary reply could not be produced. The
// turn still completes with a visible error message.
type TurnFailure struct {
	Kind FailureKind
	Err  error
}

func (f *TurnFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *TurnFailure) Unwrap() error {
	return f.Err
}

type Options struct {
	// RecallDepth is the number of exchanges the engine sees; the window
	// holds RecallDepth*2 messages.
	RecallDepth int
	// PanelByDefault enables the consensus panel on new sessions.
	PanelByDefault bool
}

type Service struct {
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	agent        *triage.Agent
	panel        *agentflow.Panel
	events       domain.EventPublisher
	opts         Options

	now   func() time.Time
	newID func() string

	locksMu   sync.Mutex
	turnLocks map[domain.SessionID]*turnLock
}

// turnLock serialises turns of one session. It is dropped from the map when
// its last holder or waiter releases it.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

// NewService wires the turn pipeline. panel and events may be nil.
func NewService(
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	agent *triage.Agent,
	panel *agentflow.Panel,
	events domain.EventPublisher,
	opts Options,
) *Service {
	if opts.RecallDepth < 1 {
		opts.RecallDepth = DefaultRecallDepth
	}
	return &Service{
		sessionStore: sessionStore,
		messageStore: messageStore,
		agent:        agent,
		panel:        panel,
		events:       events,
		opts:         opts,
		now:          time.Now,
		newID:        uuid.NewString,
		turnLocks:    make(map[domain.SessionID]*turnLock),
	}
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
	// Panel overrides PanelByDefault when set.
	Panel *bool
}

type StartSessionOutput struct {
	Session *domain.Session
	// Greeting is for display only and is not part of the transcript.
	Greeting string
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()

	panel := s.opts.PanelByDefault
	if in.Panel != nil {
		panel = *in.Panel
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"panel", panel,
	)
	log.Info("starting new session")

	session := &domain.Session{
		ID:           domain.SessionID(s.newID()),
		UserID:       in.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Title:        in.Title,
		PanelEnabled: panel,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{
		Session:  session,
		Greeting: triage.GreetingMessage,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message

	// Failure is set when the engine failed; AgentMessage then holds the
	// "Error: " text.
	Failure *TurnFailure
	// Consensus is nil when the panel did not run.
	Consensus  *agentflow.Consensus
	Provenance domain.Provenance
	Lookups    int
}

// SendMessage runs one full turn. Turns on the same session are serialised.
// Engine failures do not return an error; only store failures do.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.lockTurn(in.SessionID)
	defer unlock()

	start := s.now()

	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
	)
	log.Info("sending message", "chars", len(in.Text))

	userMsg := &domain.Message{
		ID:          domain.MessageID(s.newID()),
		SessionID:   session.ID,
		Author:      domain.RoleUser,
		Text:        in.Text,
		CreatedAt:   s.now(),
		ContentType: domain.ContentTypeText,
	}

	if err := s.messageStore.AppendMessage(ctx, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, fmt.Errorf("append user message: %w", err)
	}

	window, err := s.messageStore.GetMessagesBySession(ctx, session.ID, s.windowSize())
	if err != nil {
		log.Error("failed to load window", "error", err)
		return nil, fmt.Errorf("load window: %w", err)
	}

	out := &SendMessageOutput{UserMessage: userMsg}

	tctx := tools.ToolContext{
		UserID:    string(session.UserID),
		SessionID: string(session.ID),
		RequestID: observability.RequestIDFromContext(ctx),
	}
	res, err := s.agent.Respond(ctx, tctx, window)
	out.Provenance = res.Provenance
	out.Lookups = res.Lookups

	reply := res.Reply
	contentType := domain.ContentTypeDiagnosis
	if err != nil {
		out.Failure = classify(err)
		reply = "Error: " + err.Error()
		contentType = domain.ContentTypeError
		log.Error("turn failed", "kind", out.Failure.Kind, "error", err)
	} else if s.panel != nil && session.PanelEnabled {
		c := s.panel.Run(ctx, in.Text)
		out.Consensus = &c
		reply += c.Section()
	}

	agentMsg := &domain.Message{
		ID:          domain.MessageID(s.newID()),
		SessionID:   session.ID,
		Author:      domain.RoleAssistant,
		Text:        reply,
		CreatedAt:   s.now(),
		ContentType: contentType,
		ReplyTo:     &userMsg.ID,
	}

	if err := s.messageStore.AppendMessage(ctx, agentMsg); err != nil {
		log.Error("failed to append agent message", "error", err)
		return nil, fmt.Errorf("append agent message: %w", err)
	}
	out.AgentMessage = agentMsg

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, fmt.Errorf("update session: %w", err)
	}

	s.finishTurn(ctx, session, out, start)
	log.Info("send message completed",
		"failed", out.Failure != nil,
		"provenance", out.Provenance,
		"elapsed_ms", s.now().Sub(start).Milliseconds(),
	)

	return out, nil
}

func (s *Service) finishTurn(ctx context.Context, session *domain.Session, out *SendMessageOutput, start time.Time) {
	outcome := observability.OutcomeOK
	if out.Failure != nil {
		outcome = observability.OutcomeEngineError
	}
	observability.TurnsTotal.WithLabelValues(outcome).Inc()
	observability.TurnDuration.Observe(s.now().Sub(start).Seconds())

	if s.events == nil {
		return
	}

	evt := domain.TurnEvent{
		SessionID:      session.ID,
		UserID:         session.UserID,
		UserMessageID:  out.UserMessage.ID,
		ReplyMessageID: out.AgentMessage.ID,
		Failed:         out.Failure != nil,
		Provenance:     out.Provenance,
		LookupCount:    out.Lookups,
		CompletedAt:    out.AgentMessage.CreatedAt,
	}
	if out.Consensus != nil {
		evt.ConsensusRounds = len(out.Consensus.Rounds)
	}
	if err := s.events.PublishTurn(ctx, evt); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to publish turn event",
			"session_id", session.ID,
			"error", err,
		)
	}
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"limit", limit,
	)

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return nil, nil, fmt.Errorf("get session: %w", err)
	}

	msgs, err := s.messageStore.GetMessagesBySession(ctx, sessionID, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, fmt.Errorf("get messages: %w", err)
	}

	log.Info("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

// Window returns the context window the engine would see next: the last
// RecallDepth*2 messages of the transcript.
func (s *Service) Window(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s.messageStore.GetMessagesBySession(ctx, sessionID, s.windowSize())
}

func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	return s.sessionStore.ListSessionsByUser(ctx, userID, limit)
}

func (s *Service) windowSize() int {
	return s.opts.RecallDepth * 2
}

func (s *Service) lockTurn(id domain.SessionID) func() {
	s.locksMu.Lock()
	l, ok := s.turnLocks[id]
	if !ok {
		l = &turnLock{}
		s.turnLocks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.turnLocks, id)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) activeTurnLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.turnLocks)
}

func classify(err error) *TurnFailure {
	if errors.Is(err, triage.ErrEmptyReply) {
		return &TurnFailure{Kind: FailureEmptyReply, Err: err}
	}
	if errors.Is(err, triage.ErrToolLoop) {
		return &TurnFailure{Kind: FailureToolLoop, Err: err}
	}
	return &TurnFailure{Kind: FailureEngine, Err: err}
}
