package detection

import (
	"regexp"
	"strings"

	"surveyguard/internal/models"
)

// Automation tooling leaves recognizable traces in the user agent.
var automationUAPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)headless`),
	regexp.MustCompile(`(?i)phantomjs`),
	regexp.MustCompile(`(?i)selenium`),
	regexp.MustCompile(`(?i)webdriver`),
	regexp.MustCompile(`(?i)puppeteer`),
	regexp.MustCompile(`(?i)playwright`),
	regexp.MustCompile(`(?i)electron`),
	regexp.MustCompile(`(?i)(bot|spider|crawler|scraper)`),
}

// Bare HTTP-library agents, e.g. "python-requests/2.31".
var bareLibraryUA = regexp.MustCompile(`^[a-zA-Z-]+/[\d.]+$`)

var scriptedClients = []string{"python", "curl", "wget", "libwww", "java/", "go-http-client", "okhttp"}

// scoreDevice rates device/browser signals: automation traces in the user
// agent, missing or degenerate screen geometry, and an absent device
// fingerprint. Applicable whenever a session record exists; device
// signals are per-session facts, not sampled behavior.
func scoreDevice(f *SessionFeatures) MethodResult {
	session := f.Session
	if session == nil {
		return notApplicable(0)
	}

	var flags []models.Flag
	score := 0.0

	ua := session.UserAgent
	switch {
	case ua == "":
		score += 0.6
		flags = append(flags, models.Flag{
			Name:       models.PatternAutomationAgent,
			Confidence: 0.6,
			Observed:   0,
			Threshold:  1,
			Detail:     "empty user agent",
		})
	case matchesAutomationUA(ua):
		score += 0.9
		flags = append(flags, models.Flag{
			Name:       models.PatternAutomationAgent,
			Confidence: 0.9,
			Observed:   1,
			Threshold:  1,
			Detail:     "user agent matches automation tooling",
		})
	case bareLibraryUA.MatchString(ua) || containsScriptedClient(ua):
		score += 0.7
		flags = append(flags, models.Flag{
			Name:       models.PatternAutomationAgent,
			Confidence: 0.7,
			Observed:   1,
			Threshold:  1,
			Detail:     "user agent is a bare HTTP client library",
		})
	}

	if !hasScreenGeometry(f.PageViews) {
		score += 0.3
		flags = append(flags, models.Flag{
			Name:       models.PatternMissingDevice,
			Confidence: 0.5,
			Observed:   0,
			Threshold:  1,
			Detail:     "no usable screen geometry reported",
		})
	}

	if session.DeviceFingerprint == "" {
		score += 0.2
		flags = append(flags, models.Flag{
			Name:       models.PatternMissingDevice,
			Confidence: 0.4,
			Observed:   0,
			Threshold:  1,
			Detail:     "no device fingerprint collected",
		})
	}

	return MethodResult{
		Score:      clamp01(score),
		Applicable: true,
		SampleSize: 1,
		Flags:      flags,
	}
}

func matchesAutomationUA(ua string) bool {
	for _, p := range automationUAPatterns {
		if p.MatchString(ua) {
			return true
		}
	}
	return false
}

func containsScriptedClient(ua string) bool {
	lower := strings.ToLower(ua)
	for _, lib := range scriptedClients {
		if strings.Contains(lower, lib) {
			return true
		}
	}
	return false
}

func hasScreenGeometry(pageViews []models.Event) bool {
	for _, e := range pageViews {
		if e.ScreenW > 0 && e.ScreenH > 0 {
			return true
		}
	}
	return false
}
