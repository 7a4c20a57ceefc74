package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthya-labs/arogya-bot/internal/i18n"
	"github.com/swasthya-labs/arogya-bot/internal/llm"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/outbreak"
	"github.com/swasthya-labs/arogya-bot/internal/session"
	"github.com/swasthya-labs/arogya-bot/internal/types"
)

const testPhone = "919800000001"

type fakeUserStore struct {
	prefs       map[string]*loaders.AlertPreference
	states      map[string]loaders.StateRecord
	prefReadErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		prefs: make(map[string]*loaders.AlertPreference),
		states: map[string]loaders.StateRecord{
			"maharashtra": {ID: 14, Name: "Maharashtra", Code: "MH", Region: "West"},
			"kerala":      {ID: 12, Name: "Kerala", Code: "KL", Region: "South"},
		},
	}
}

func (f *fakeUserStore) GetAlertPreference(ctx context.Context, phone string) (*loaders.AlertPreference, error) {
	if f.prefReadErr != nil {
		return nil, f.prefReadErr
	}
	return f.prefs[phone], nil
}

func (f *fakeUserStore) UpsertAlertPreference(ctx context.Context, pref *loaders.AlertPreference) error {
	f.prefs[pref.PhoneNumber] = pref
	return nil
}

func (f *fakeUserStore) DisableAlerts(ctx context.Context, phone string) error {
	if pref, ok := f.prefs[phone]; ok {
		pref.AlertEnabled = false
	}
	return nil
}

func (f *fakeUserStore) DeleteUserData(ctx context.Context, phone string) error {
	delete(f.prefs, phone)
	return nil
}

func (f *fakeUserStore) GetStateByName(ctx context.Context, name string) (*loaders.StateRecord, error) {
	if s, ok := f.states[strings.ToLower(strings.TrimSpace(name))]; ok {
		return &s, nil
	}
	return nil, nil
}

type fakeOutbreaks struct {
	result *outbreak.Result
	err    error
	calls  []string
}

func (f *fakeOutbreaks) GetOutbreakData(ctx context.Context, stateName string) (*outbreak.Result, error) {
	f.calls = append(f.calls, stateName)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.StateName = stateName
	return &res, nil
}

type sentMessage struct {
	kind string
	body string
}

type fakeConvSender struct {
	sent []sentMessage
}

func (f *fakeConvSender) SendText(ctx context.Context, to, body string) (string, error) {
	f.sent = append(f.sent, sentMessage{"text", body})
	return "wamid.1", nil
}

func (f *fakeConvSender) SendButtons(ctx context.Context, to, body string, buttons []types.Button) (string, error) {
	f.sent = append(f.sent, sentMessage{"buttons", body})
	return "wamid.2", nil
}

func (f *fakeConvSender) SendList(ctx context.Context, to, body, buttonLabel string, sections []types.ListSection) (string, error) {
	f.sent = append(f.sent, sentMessage{"list", body})
	return "wamid.3", nil
}

func (f *fakeConvSender) lastBody(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].body
}

type routerFixture struct {
	router   *Router
	store    *fakeUserStore
	outbrks  *fakeOutbreaks
	sender   *fakeConvSender
	sessions *session.Store
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()

	tr, err := i18n.New("en")
	require.NoError(t, err)

	store := newFakeUserStore()
	outbrks := &fakeOutbreaks{result: &outbreak.Result{
		Diseases: []types.Disease{{Name: "Dengue", RiskLevel: "high", Symptoms: []string{"fever"}}},
		Source:   outbreak.SourceFresh,
	}}
	sender := &fakeConvSender{}
	sessions := session.NewStore(time.Hour, "en")
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Drink plenty of fluids and rest.", nil
	})

	return &routerFixture{
		router:   NewRouter(store, outbrks, gen, sender, sessions, tr),
		store:    store,
		outbrks:  outbrks,
		sender:   sender,
		sessions: sessions,
	}
}

func textMsg(content string) types.InboundMessage {
	return types.InboundMessage{
		PhoneNumber: testPhone,
		MessageID:   "wamid.in",
		Content:     content,
		Type:        types.MessageTypeText,
		Timestamp:   time.Now(),
	}
}

func replyMsg(payload string) types.InboundMessage {
	msg := textMsg(payload)
	msg.Type = types.MessageTypeListReply
	return msg
}

func TestUnknownTextSendsMenu(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("hi")))

	assert.Equal(t, "list", f.sender.sent[len(f.sender.sent)-1].kind)
	assert.Equal(t, session.StateMainMenu, f.sessions.Get(testPhone).State)
}

func TestLanguageSelectionFlow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("language")))
	assert.Equal(t, session.StateLanguageSelect, f.sessions.Get(testPhone).State)

	msg := textMsg("lang:hi")
	msg.Type = types.MessageTypeButtonReply
	require.NoError(t, f.router.HandleMessage(context.Background(), msg))

	sess := f.sessions.Get(testPhone)
	assert.Equal(t, "hi", sess.Language)
	assert.Equal(t, session.StateMainMenu, sess.State)
}

func TestAIChatPassthrough(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentAIChat)))
	assert.Equal(t, session.StateAIChat, f.sessions.Get(testPhone).State)

	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("what helps with a sore throat?")))
	assert.Contains(t, f.sender.lastBody(t), "Drink plenty of fluids")
}

func TestAlertRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentEnableAlerts)))
	assert.Equal(t, session.StateSelectState, f.sessions.Get(testPhone).State)

	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("Maharashtra")))

	pref := f.store.prefs[testPhone]
	require.NotNil(t, pref)
	assert.Equal(t, "Maharashtra", pref.State)
	require.NotNil(t, pref.StateID)
	assert.Equal(t, 14, *pref.StateID)
	assert.True(t, pref.AlertEnabled)
	assert.Contains(t, f.sender.lastBody(t), "Maharashtra")
	assert.Equal(t, session.StateDiseaseAlerts, f.sessions.Get(testPhone).State)
}

func TestUnknownStateNameRepromptsSelection(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentEnableAlerts)))
	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("Atlantis")))

	assert.Nil(t, f.store.prefs[testPhone])
	assert.Equal(t, session.StateSelectState, f.sessions.Get(testPhone).State)
}

func TestViewDiseasesUsesRegisteredState(t *testing.T) {
	f := newFixture(t)
	stateID := 12
	f.store.prefs[testPhone] = &loaders.AlertPreference{
		PhoneNumber: testPhone, State: "Kerala", StateID: &stateID, AlertEnabled: true,
	}

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentViewDiseases)))

	assert.Equal(t, []string{"Kerala"}, f.outbrks.calls)
	assert.Contains(t, f.sender.lastBody(t), "Dengue")
}

func TestViewDiseasesTotalFailureSendsPreventionTips(t *testing.T) {
	f := newFixture(t)
	f.outbrks.err = outbreak.ErrNoDataAvailable

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentViewDiseases)))

	body := f.sender.lastBody(t)
	assert.Contains(t, body, "Sorry")
	assert.Contains(t, body, "prevention tips")
}

func TestStopAlertsTextCommandSoftDisables(t *testing.T) {
	f := newFixture(t)
	stateID := 14
	f.store.prefs[testPhone] = &loaders.AlertPreference{
		PhoneNumber: testPhone, State: "Maharashtra", StateID: &stateID, AlertEnabled: true,
	}

	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("STOP ALERTS")))

	pref := f.store.prefs[testPhone]
	require.NotNil(t, pref, "soft disable must keep the row")
	assert.False(t, pref.AlertEnabled)
	assert.Equal(t, "Maharashtra", pref.State)
}

func TestDeleteMyDataHardDeletesAndAllowsReRegistration(t *testing.T) {
	f := newFixture(t)
	stateID := 14
	f.store.prefs[testPhone] = &loaders.AlertPreference{
		PhoneNumber: testPhone, State: "Maharashtra", StateID: &stateID, AlertEnabled: true,
	}

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentDeleteData)))
	assert.Nil(t, f.store.prefs[testPhone])

	// Re-registering must not claim the user is already registered.
	f.sender.sent = nil
	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentEnableAlerts)))
	for _, m := range f.sender.sent {
		assert.NotContains(t, m.body, "already receiving")
	}
}

func TestPreferenceReadErrorFailsOpenToNotRegistered(t *testing.T) {
	f := newFixture(t)
	f.store.prefReadErr = errors.New("connection refused")

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentAlertStatus)))

	assert.Contains(t, f.sender.lastBody(t), "not registered")
}

func TestMediaMessagesGetLocalizedNotice(t *testing.T) {
	f := newFixture(t)

	msg := textMsg("")
	msg.Type = types.MessageTypeImage
	msg.Media = &types.MediaData{ID: "media-1", MimeType: "image/jpeg"}
	require.NoError(t, f.router.HandleMessage(context.Background(), msg))

	assert.Contains(t, f.sender.lastBody(t), "text messages")
}

func TestMenuCommandEscapesAIChat(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.router.HandleMessage(context.Background(), replyMsg(IntentAIChat)))
	require.NoError(t, f.router.HandleMessage(context.Background(), textMsg("menu")))

	assert.Equal(t, session.StateMainMenu, f.sessions.Get(testPhone).State)
}
