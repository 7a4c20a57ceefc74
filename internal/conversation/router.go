package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/i18n"
	"github.com/swasthya-labs/arogya-bot/internal/llm"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/outbreak"
	"github.com/swasthya-labs/arogya-bot/internal/session"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// Intent identifiers. Button and list reply payloads carry these directly;
// free text resolves to them through MatchCommand.
const (
	IntentMainMenu      = "main_menu"
	IntentAIChat        = "ai_chat"
	IntentSymptomCheck  = "symptom_check"
	IntentDiseaseAlerts = "disease_alerts"
	IntentLanguage      = "language"
	IntentViewDiseases  = "view_diseases"
	IntentEnableAlerts  = "enable_alerts"
	IntentDisableAlerts = "disable_alerts"
	IntentDeleteData    = "delete_data"
	IntentAlertStatus   = "alert_status"

	intentSetLanguage = "set_language"
	intentFreeText    = "_text"
	anyState          = "*"

	languagePayloadPrefix = "lang:"
)

// Sender pushes outbound messages through the messaging platform.
// Implemented by the WhatsApp client.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendButtons(ctx context.Context, to, body string, buttons []types.Button) (string, error)
	SendList(ctx context.Context, to, body, buttonLabel string, sections []types.ListSection) (string, error)
}

// UserStore is the slice of the database the router needs. Implemented by
// loaders.PostgresClient.
type UserStore interface {
	GetAlertPreference(ctx context.Context, phoneNumber string) (*loaders.AlertPreference, error)
	UpsertAlertPreference(ctx context.Context, pref *loaders.AlertPreference) error
	DisableAlerts(ctx context.Context, phoneNumber string) error
	DeleteUserData(ctx context.Context, phoneNumber string) error
	GetStateByName(ctx context.Context, name string) (*loaders.StateRecord, error)
}

// OutbreakProvider resolves disease data through the cache-aside service.
type OutbreakProvider interface {
	GetOutbreakData(ctx context.Context, stateName string) (*outbreak.Result, error)
}

type dispatchKey struct {
	state  string
	intent string
}

type handlerFunc func(ctx context.Context, rc *requestContext) error

// requestContext carries one inbound message through its handler.
type requestContext struct {
	msg         types.InboundMessage
	sess        session.Session
	payload     string
	dropSession bool
}

// Router maps (session state, intent) to handler invocations.
type Router struct {
	store     UserStore
	outbreaks OutbreakProvider
	gen       llm.Generator
	sender    Sender
	sessions  *session.Store
	tr        *i18n.Translator
	table     map[dispatchKey]handlerFunc
}

func NewRouter(store UserStore, outbreaks OutbreakProvider, gen llm.Generator, sender Sender, sessions *session.Store, tr *i18n.Translator) *Router {
	r := &Router{
		store:     store,
		outbreaks: outbreaks,
		gen:       gen,
		sender:    sender,
		sessions:  sessions,
		tr:        tr,
	}

	r.table = map[dispatchKey]handlerFunc{
		{anyState, IntentMainMenu}:      r.handleMainMenu,
		{anyState, IntentAIChat}:        r.handleAIChatIntro,
		{anyState, IntentSymptomCheck}:  r.handleSymptomIntro,
		{anyState, IntentDiseaseAlerts}: r.handleAlertsMenu,
		{anyState, IntentLanguage}:      r.handleLanguageMenu,
		{anyState, intentSetLanguage}:   r.handleSetLanguage,
		{anyState, IntentViewDiseases}:  r.handleViewDiseases,
		{anyState, IntentEnableAlerts}:  r.handleEnableAlerts,
		{anyState, IntentDisableAlerts}: r.handleDisableAlerts,
		{anyState, IntentDeleteData}:    r.handleDeleteData,
		{anyState, IntentAlertStatus}:   r.handleAlertStatus,

		{session.StateAIChat, intentFreeText}:       r.handleAIChatMessage,
		{session.StateSymptomCheck, intentFreeText}: r.handleSymptomMessage,
		{session.StateSelectState, intentFreeText}:  r.handleStateSelection,
	}

	return r
}

// HandleMessage routes one inbound message. A per-phone lock serializes
// concurrent deliveries for the same user.
func (r *Router) HandleMessage(ctx context.Context, msg types.InboundMessage) error {
	unlock := r.sessions.Lock(msg.PhoneNumber)
	defer unlock()

	rc := &requestContext{
		msg:  msg,
		sess: r.sessions.Get(msg.PhoneNumber),
	}

	handler := r.resolve(rc)
	err := handler(ctx, rc)

	if rc.dropSession {
		r.sessions.Delete(msg.PhoneNumber)
	} else {
		r.sessions.Set(msg.PhoneNumber, rc.sess)
	}

	if err != nil {
		utils.Zlog.Error("Conversation handler failed",
			zap.String("phone", msg.PhoneNumber),
			zap.String("state", rc.sess.State),
			zap.Error(err))
	}
	return err
}

// resolve picks the handler for the message given the current session state.
func (r *Router) resolve(rc *requestContext) handlerFunc {
	switch rc.msg.Type {
	case types.MessageTypeImage, types.MessageTypeAudio, types.MessageTypeDocument:
		return r.handleUnsupportedMedia
	case types.MessageTypeButtonReply, types.MessageTypeListReply:
		return r.resolveIntent(rc, rc.msg.Content)
	}

	// Plain text: global commands first, then the state's free-text handler.
	if intent, ok := MatchCommand(rc.msg.Content); ok {
		return r.resolveIntent(rc, intent)
	}
	if h, ok := r.table[dispatchKey{rc.sess.State, intentFreeText}]; ok {
		return h
	}
	return r.handleUnknown
}

func (r *Router) resolveIntent(rc *requestContext, intent string) handlerFunc {
	if strings.HasPrefix(intent, languagePayloadPrefix) {
		rc.payload = strings.TrimPrefix(intent, languagePayloadPrefix)
		intent = intentSetLanguage
	}

	if h, ok := r.table[dispatchKey{rc.sess.State, intent}]; ok {
		return h
	}
	if h, ok := r.table[dispatchKey{anyState, intent}]; ok {
		return h
	}
	return r.handleUnknown
}

// t looks up a localized string in the user's session language.
func (r *Router) t(rc *requestContext, key string, data map[string]interface{}) string {
	return r.tr.T(rc.sess.Language, key, data)
}
