package conversation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/alerts"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/session"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

func (r *Router) handleMainMenu(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateMainMenu

	sections := []types.ListSection{{
		Title: r.t(rc, "main_menu_title", nil),
		Rows: []types.ListRow{
			{ID: IntentAIChat, Title: r.t(rc, "menu_ai_chat", nil)},
			{ID: IntentSymptomCheck, Title: r.t(rc, "menu_symptom_check", nil)},
			{ID: IntentDiseaseAlerts, Title: r.t(rc, "menu_disease_alerts", nil)},
			{ID: IntentLanguage, Title: r.t(rc, "menu_language", nil)},
		},
	}}

	body := r.t(rc, "welcome", nil) + "\n\n" + r.t(rc, "main_menu_body", nil)
	_, err := r.sender.SendList(ctx, rc.msg.PhoneNumber, body, r.t(rc, "main_menu_title", nil), sections)
	return err
}

func (r *Router) handleAlertsMenu(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateDiseaseAlerts

	sections := []types.ListSection{{
		Title: r.t(rc, "menu_disease_alerts", nil),
		Rows: []types.ListRow{
			{ID: IntentViewDiseases, Title: r.t(rc, "alerts_view_diseases", nil)},
			{ID: IntentEnableAlerts, Title: r.t(rc, "alerts_enable", nil)},
			{ID: IntentDisableAlerts, Title: r.t(rc, "alerts_disable", nil)},
			{ID: IntentAlertStatus, Title: r.t(rc, "alerts_status", nil)},
			{ID: IntentDeleteData, Title: r.t(rc, "alerts_delete_data", nil)},
		},
	}}

	_, err := r.sender.SendList(ctx, rc.msg.PhoneNumber,
		r.t(rc, "alerts_menu_body", nil),
		r.t(rc, "menu_disease_alerts", nil),
		sections)
	return err
}

func (r *Router) handleLanguageMenu(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateLanguageSelect

	buttons := []types.Button{
		{ID: languagePayloadPrefix + "en", Title: "English"},
		{ID: languagePayloadPrefix + "hi", Title: "हिंदी"},
	}
	_, err := r.sender.SendButtons(ctx, rc.msg.PhoneNumber, r.t(rc, "choose_language", nil), buttons)
	return err
}

func (r *Router) handleSetLanguage(ctx context.Context, rc *requestContext) error {
	switch rc.payload {
	case "en", "hi":
		rc.sess.Language = rc.payload
	default:
		return r.handleUnknown(ctx, rc)
	}
	rc.sess.State = session.StateMainMenu

	if _, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "language_set", nil)); err != nil {
		return err
	}
	return r.handleMainMenu(ctx, rc)
}

func (r *Router) handleAIChatIntro(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateAIChat
	_, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "ai_chat_intro", nil))
	return err
}

func (r *Router) handleAIChatMessage(ctx context.Context, rc *requestContext) error {
	prompt := fmt.Sprintf(
		"You are a helpful health assistant for users in India, answering over WhatsApp. "+
			"Answer briefly and practically in %s. Question: %s",
		languageName(rc.sess.Language), rc.msg.Content)

	reply, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		utils.Zlog.Warn("AI chat generation failed",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "apology", nil))
		return sendErr
	}

	body := reply + "\n\n" + r.t(rc, "medical_disclaimer", nil)
	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

func (r *Router) handleSymptomIntro(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateSymptomCheck
	_, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "symptom_check_intro", nil))
	return err
}

func (r *Router) handleSymptomMessage(ctx context.Context, rc *requestContext) error {
	prompt := fmt.Sprintf(
		"A user in India reports these symptoms: %q. In %s, list the most likely common causes, "+
			"simple home care steps, and clear signs that mean they should see a doctor. "+
			"Be brief and practical; do not give a diagnosis.",
		rc.msg.Content, languageName(rc.sess.Language))

	reply, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		utils.Zlog.Warn("Symptom check generation failed",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber,
			r.t(rc, "apology", nil)+"\n\n"+r.t(rc, "prevention_tips", nil))
		return sendErr
	}

	body := reply + "\n\n" + r.t(rc, "medical_disclaimer", nil)
	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

func (r *Router) handleViewDiseases(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateDiseaseAlerts

	// A failed preference read fails open to the nationwide view.
	stateName, district := "", ""
	pref, err := r.store.GetAlertPreference(ctx, rc.msg.PhoneNumber)
	if err != nil {
		utils.Zlog.Warn("Preference lookup failed, using nationwide scope",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
	} else if pref != nil {
		stateName, district = pref.State, pref.District
	}

	result, err := r.outbreaks.GetOutbreakData(ctx, stateName)
	if err != nil {
		// Never leave the user with zero actionable content.
		utils.Zlog.Warn("Outbreak lookup failed for user",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.String("state", stateName),
			zap.Error(err))
		body := r.t(rc, "apology", nil) + "\n\n" + r.t(rc, "prevention_tips", nil)
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
		return sendErr
	}

	region := "India"
	if stateName != "" {
		region = stateName
	}
	header := r.t(rc, "outbreak_report_header", map[string]interface{}{
		"Region": region,
		"Source": string(result.Source),
	})
	body := header + "\n\n" + alerts.FormatAlertMessage(result.Diseases, stateName, district)
	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

func (r *Router) handleEnableAlerts(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateSelectState

	pref, err := r.store.GetAlertPreference(ctx, rc.msg.PhoneNumber)
	if err != nil {
		utils.Zlog.Warn("Preference lookup failed during registration",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		pref = nil
	}
	if pref != nil && pref.AlertEnabled {
		already := r.t(rc, "alerts_already_on", map[string]interface{}{"State": pref.State})
		if _, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, already); err != nil {
			return err
		}
	}

	body := r.t(rc, "choose_state_title", nil) + "\n" + r.t(rc, "choose_state_body", nil)
	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

// handleStateSelection resolves the typed state name against the canonical
// states table, so the stored preference always carries a state_id reference.
func (r *Router) handleStateSelection(ctx context.Context, rc *requestContext) error {
	record, err := r.store.GetStateByName(ctx, rc.msg.Content)
	if err != nil {
		utils.Zlog.Warn("State lookup failed",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
	}
	if record == nil {
		body := r.t(rc, "choose_state_title", nil) + "\n" + r.t(rc, "choose_state_body", nil)
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
		return sendErr
	}

	stateID := record.ID
	pref := &loaders.AlertPreference{
		PhoneNumber:  rc.msg.PhoneNumber,
		State:        record.Name,
		StateID:      &stateID,
		AlertEnabled: true,
		Frequency:    "daily",
	}
	if err := r.store.UpsertAlertPreference(ctx, pref); err != nil {
		utils.Zlog.Error("Failed to save alert preference",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "apology", nil))
		return sendErr
	}

	rc.sess.State = session.StateDiseaseAlerts
	body := r.t(rc, "alerts_enabled", map[string]interface{}{"State": record.Name})
	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

func (r *Router) handleDisableAlerts(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateMainMenu

	if err := r.store.DisableAlerts(ctx, rc.msg.PhoneNumber); err != nil {
		utils.Zlog.Error("Failed to disable alerts",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "apology", nil))
		return sendErr
	}

	_, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "alerts_disabled", nil))
	return err
}

func (r *Router) handleDeleteData(ctx context.Context, rc *requestContext) error {
	if err := r.store.DeleteUserData(ctx, rc.msg.PhoneNumber); err != nil {
		utils.Zlog.Error("Failed to delete user data",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		_, sendErr := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "apology", nil))
		return sendErr
	}

	rc.dropSession = true
	_, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "data_deleted", nil))
	return err
}

func (r *Router) handleAlertStatus(ctx context.Context, rc *requestContext) error {
	rc.sess.State = session.StateDiseaseAlerts

	pref, err := r.store.GetAlertPreference(ctx, rc.msg.PhoneNumber)
	if err != nil {
		// Fails open to the safer "not registered" prompt.
		utils.Zlog.Warn("Preference lookup failed for status",
			zap.String("phone", rc.msg.PhoneNumber),
			zap.Error(err))
		pref = nil
	}

	var body string
	switch {
	case pref == nil:
		body = r.t(rc, "not_registered", nil)
	case pref.AlertEnabled:
		body = r.t(rc, "alerts_status_on", map[string]interface{}{"State": pref.State})
	default:
		body = r.t(rc, "alerts_status_off", nil)
	}

	_, err = r.sender.SendText(ctx, rc.msg.PhoneNumber, body)
	return err
}

func (r *Router) handleUnsupportedMedia(ctx context.Context, rc *requestContext) error {
	_, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "unsupported_media", nil))
	return err
}

func (r *Router) handleUnknown(ctx context.Context, rc *requestContext) error {
	if _, err := r.sender.SendText(ctx, rc.msg.PhoneNumber, r.t(rc, "unknown_input", nil)); err != nil {
		return err
	}
	return r.handleMainMenu(ctx, rc)
}

func languageName(code string) string {
	if code == "hi" {
		return "Hindi"
	}
	return "English"
}
