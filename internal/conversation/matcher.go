package conversation

import (
	"regexp"
	"strings"
)

// Text commands are matched loosely: an exact phrase wins, otherwise the
// message keywords are scored against each command's phrases so inputs like
// "please STOP the alerts" still resolve.

const minCommandScore = 0.55

var commandPhrases = map[string][]string{
	IntentMainMenu:      {"menu", "main menu", "start", "hi", "hello", "namaste", "back", "home"},
	IntentAIChat:        {"chat", "ask question", "health question", "talk"},
	IntentSymptomCheck:  {"symptom check", "check symptoms", "symptoms"},
	IntentDiseaseAlerts: {"alerts", "disease alerts", "outbreak alerts"},
	IntentLanguage:      {"language", "change language", "bhasha"},
	IntentViewDiseases:  {"view diseases", "diseases", "outbreaks", "view outbreaks"},
	IntentDisableAlerts: {"stop alerts", "stop", "unsubscribe", "alerts off"},
	IntentDeleteData:    {"delete my data", "delete data", "forget me"},
	IntentAlertStatus:   {"alert status", "status"},
}

var stopwords = map[string]bool{
	"i": true, "me": true, "my": true, "you": true, "your": true, "it": true,
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "for": true, "in": true, "on": true, "is": true, "are": true,
	"do": true, "can": true, "will": true, "want": true, "need": true,
	"please": true, "now": true, "all": true,
}

var tokenSplit = regexp.MustCompile(`[^\w]+`)

// MatchCommand resolves free text to a global command intent, if any.
func MatchCommand(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}

	for intent, phrases := range commandPhrases {
		for _, phrase := range phrases {
			if normalized == phrase {
				return intent, true
			}
		}
	}

	keywords := extractKeywords(normalized)
	if len(keywords) == 0 {
		return "", false
	}

	bestScore := 0.0
	bestIntent := ""
	for intent, phrases := range commandPhrases {
		for _, phrase := range phrases {
			score := phraseScore(keywords, phrase)
			if score > bestScore {
				bestScore = score
				bestIntent = intent
			}
		}
	}

	if bestScore < minCommandScore {
		return "", false
	}
	return bestIntent, true
}

// extractKeywords tokenizes the message and drops stopwords and short tokens.
func extractKeywords(text string) []string {
	var keywords []string
	for _, word := range tokenSplit.Split(text, -1) {
		if word == "" || len(word) < 2 || stopwords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// phraseScore averages the best per-keyword similarity against the phrase
// words, weighted by how many keywords matched at all.
func phraseScore(keywords []string, phrase string) float64 {
	phraseWords := strings.Fields(phrase)
	if len(phraseWords) == 0 {
		return 0.0
	}

	totalScore := 0.0
	matchCount := 0
	for _, keyword := range keywords {
		bestWordScore := 0.0
		for _, phraseWord := range phraseWords {
			if sim := similarity(keyword, phraseWord); sim > bestWordScore {
				bestWordScore = sim
			}
		}
		if bestWordScore > 0 {
			totalScore += bestWordScore
			matchCount++
		}
	}

	if matchCount == 0 {
		return 0.0
	}

	avgScore := totalScore / float64(len(keywords))
	matchRatio := float64(matchCount) / float64(len(keywords))
	return avgScore * (0.7 + 0.3*matchRatio)
}

// similarity scores two words in [0,1]: exact match, then containment, then
// character-bigram Jaccard overlap.
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		shorter, longer := len(s1), len(s2)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return 0.8 * (float64(shorter) / float64(longer))
	}

	return jaccardBigrams(s1, s2)
}

func jaccardBigrams(s1, s2 string) float64 {
	grams1 := bigrams(s1)
	grams2 := bigrams(s2)
	if len(grams1) == 0 || len(grams2) == 0 {
		return 0.0
	}

	intersection := 0
	for g := range grams1 {
		if grams2[g] {
			intersection++
		}
	}
	union := len(grams1) + len(grams2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func bigrams(s string) map[string]bool {
	grams := make(map[string]bool)
	for i := 0; i+2 <= len(s); i++ {
		grams[s[i:i+2]] = true
	}
	return grams
}
