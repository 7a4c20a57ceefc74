package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/swasthya-labs/arogya-bot/internal/types"
)

const maxListedItems = 4

// priorityIndicator maps a risk level to the emoji prefix on an alert section.
func priorityIndicator(riskLevel string) string {
	switch strings.ToLower(strings.TrimSpace(riskLevel)) {
	case "high", "severe", "critical":
		return "🚨"
	case "medium", "moderate":
		return "⚠️"
	case "low":
		return "📍"
	default:
		return "🔍"
	}
}

// locationLine composes the location section, preferring the user's own
// district or state over the generic affected-location list.
func locationLine(d types.Disease, userState, userDistrict string) string {
	if userDistrict != "" {
		for _, loc := range d.AffectedLocations {
			if strings.EqualFold(strings.TrimSpace(loc.Name), strings.TrimSpace(userDistrict)) {
				return fmt.Sprintf("%s, %s", userDistrict, userState)
			}
		}
	}
	if userState != "" {
		return userState
	}
	if len(d.AffectedLocations) > 0 {
		names := make([]string, 0, len(d.AffectedLocations))
		for _, loc := range d.AffectedLocations {
			if loc.Name != "" {
				names = append(names, loc.Name)
			}
		}
		if len(names) > 0 {
			return joinLimited(names, maxListedItems)
		}
	}
	return "Multiple regions"
}

func joinLimited(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func formatDiseaseSection(d types.Disease, userState, userDistrict string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", priorityIndicator(d.RiskLevel), d.Name)
	fmt.Fprintf(&b, "📍 Location: %s\n", locationLine(d, userState, userDistrict))
	if len(d.Symptoms) > 0 {
		fmt.Fprintf(&b, "🤒 Symptoms: %s\n", joinLimited(d.Symptoms, maxListedItems))
	}
	if len(d.PreventionMethods) > 0 {
		fmt.Fprintf(&b, "🛡️ Prevention: %s\n", joinLimited(d.PreventionMethods, maxListedItems))
	}
	return b.String()
}

// FormatAlertMessage composes the outbound alert text for a batch send.
func FormatAlertMessage(diseases []types.Disease, userState, userDistrict string) string {
	var b strings.Builder
	b.WriteString("🦠 *Disease Outbreak Alert*\n\n")
	for i, d := range diseases {
		b.WriteString(formatDiseaseSection(d, userState, userDistrict))
		if i < len(diseases)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\nStay safe. Reply MENU for more options.")
	return b.String()
}

// FormatDailySummary composes the morning summary message.
func FormatDailySummary(diseases []types.Disease, date time.Time, userState, userDistrict string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌅 *Daily Health Summary — %s*\n\n", date.Format("02 Jan 2006"))
	if len(diseases) == 0 {
		b.WriteString("No active outbreaks reported today. Keep following basic hygiene practices.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Active outbreaks being tracked: %d\n\n", len(diseases))
	for _, d := range diseases {
		b.WriteString(formatDiseaseSection(d, userState, userDistrict))
		b.WriteString("\n")
	}
	b.WriteString("Reply MENU for more options.")
	return b.String()
}
