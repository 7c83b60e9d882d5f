package fraud

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Evaluator is an independent rule family producing a partial score.
// Evaluators are pure over their inputs: the same lead, history and clock
// reading always yield the same partial score.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, lead *Lead, history []SubmissionHistoryEntry, now time.Time) PartialScore
}

// saPhonePattern matches South African numbers: optional +27 or a leading 0,
// followed by exactly 9 digits.
var saPhonePattern = regexp.MustCompile(`^(\+27|0)\d{9}$`)

// exclamationRuns matches runs of 2+ consecutive exclamation marks
var exclamationRuns = regexp.MustCompile(`!{2,}`)

// ========================================
// CONTACT VALIDATOR
// ========================================

type contactEvaluator struct {
	disposableDomains []string
	voip              VoIPDetector
}

// NewContactEvaluator validates phone and email contact details
func NewContactEvaluator(rules RuleConfig, voip VoIPDetector) Evaluator {
	if voip == nil {
		voip = NoopVoIPDetector{}
	}
	return &contactEvaluator{
		disposableDomains: rules.normalized().DisposableEmailDomains,
		voip:              voip,
	}
}

func (e *contactEvaluator) Name() string { return "contact" }

func (e *contactEvaluator) Evaluate(ctx context.Context, lead *Lead, _ []SubmissionHistoryEntry, _ time.Time) PartialScore {
	var partial PartialScore

	phone := strings.Join(strings.Fields(lead.ContactPhone), "")
	if !saPhonePattern.MatchString(phone) {
		partial.add(weightInvalidPhone,
			"Invalid phone number format",
			"Verify phone number via SMS")
	}

	if !isValidEmail(lead.ContactEmail) {
		partial.add(weightInvalidEmail,
			"Invalid email address format",
			"Request a valid email address")
	}

	if domain, ok := emailDomain(lead.ContactEmail); ok {
		for _, disposable := range e.disposableDomains {
			if domain == disposable {
				partial.add(weightDisposableEmail,
					"Disposable email address detected",
					"Require a permanent email address")
				break
			}
		}
	}

	// Provider errors are swallowed: a failed lookup is no signal, not a risk.
	if isVoIP, err := e.voip.IsVoIP(ctx, phone); err == nil && isVoIP {
		partial.add(weightVoIPNumber,
			"VoIP phone number detected",
			"Request an alternative contact number")
	}

	return partial
}

// isValidEmail checks the minimal local@domain.tld shape: no whitespace, at
// least one @, and a dot somewhere after it.
func isValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\n") {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func emailDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}

// ========================================
// LOCATION VALIDATOR
// ========================================

type locationEvaluator struct {
	suspiciousWords []string
	geocoder        Geocoder
}

// NewLocationEvaluator validates address and location fields
func NewLocationEvaluator(rules RuleConfig, geocoder Geocoder) Evaluator {
	if geocoder == nil {
		geocoder = NoopGeocoder{}
	}
	return &locationEvaluator{
		suspiciousWords: rules.normalized().SuspiciousLocationWords,
		geocoder:        geocoder,
	}
}

func (e *locationEvaluator) Name() string { return "location" }

func (e *locationEvaluator) Evaluate(ctx context.Context, lead *Lead, _ []SubmissionHistoryEntry, _ time.Time) PartialScore {
	var partial PartialScore

	if len(lead.Address) <= 10 || !strings.Contains(lead.Address, " ") {
		partial.add(weightInvalidAddress,
			"Address appears incomplete or invalid",
			"Verify the street address")
	}

	location := strings.ToLower(lead.LocationSuburb + lead.LocationCity)
	for _, word := range e.suspiciousWords {
		if strings.Contains(location, word) {
			partial.add(weightSuspiciousLocation,
				"Location contains placeholder terms",
				"Manually verify the suburb and city")
			break
		}
	}

	if matches, err := e.geocoder.Matches(ctx, lead.Address, lead.LocationSuburb, lead.LocationCity); err == nil && !matches {
		partial.add(weightLocationMismatch,
			"Address does not match the stated suburb/city",
			"Verify the address against the location")
	}

	return partial
}

// ========================================
// BEHAVIOR ANALYZER
// ========================================

type behaviorEvaluator struct{}

// NewBehaviorEvaluator inspects the submitter's prior submissions. With no
// history supplied it contributes nothing.
func NewBehaviorEvaluator() Evaluator {
	return behaviorEvaluator{}
}

func (behaviorEvaluator) Name() string { return "behavior" }

func (behaviorEvaluator) Evaluate(_ context.Context, lead *Lead, history []SubmissionHistoryEntry, now time.Time) PartialScore {
	var partial PartialScore

	if len(history) == 0 {
		return partial
	}

	cutoff := now.Add(-24 * time.Hour)
	recentCount := 0
	for _, entry := range history {
		if entry.CreatedAt.After(cutoff) {
			recentCount++
		}
	}
	if recentCount > 3 {
		partial.add(weightRapidSubmissions,
			"Multiple submissions within 24 hours",
			"Review the submitter's recent activity")
	}

	for _, entry := range mostRecent(history, 10) {
		if entry.Description == lead.Description || entry.Title == lead.Title {
			partial.add(weightDuplicateContent,
				"Content duplicates a previous submission",
				"Compare against the submitter's previous requests")
			break
		}
	}

	// Deliberately the scoring-time clock, not the lead's submission time:
	// the signal targets automated submitters active when humans are not.
	if hour := now.Hour(); hour >= 2 && hour <= 5 {
		partial.add(weightSuspiciousTiming,
			"Submitted during unusual hours",
			"Flag for automated-activity review")
	}

	return partial
}

// mostRecent returns up to n entries ordered newest first, regardless of the
// order the caller supplied them in.
func mostRecent(history []SubmissionHistoryEntry, n int) []SubmissionHistoryEntry {
	sorted := make([]SubmissionHistoryEntry, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ========================================
// CONTENT ANALYZER
// ========================================

type contentEvaluator struct {
	spamKeywords    []string
	urgencyKeywords []string
}

// NewContentEvaluator inspects the free-text title and description
func NewContentEvaluator(rules RuleConfig) Evaluator {
	normalized := rules.normalized()
	return &contentEvaluator{
		spamKeywords:    normalized.SpamKeywords,
		urgencyKeywords: normalized.UrgencyKeywords,
	}
}

func (e *contentEvaluator) Name() string { return "content" }

func (e *contentEvaluator) Evaluate(_ context.Context, lead *Lead, _ []SubmissionHistoryEntry, _ time.Time) PartialScore {
	var partial PartialScore

	description := lead.Description
	lower := strings.ToLower(description)

	if len(description) < 50 || len(strings.Fields(description)) < 10 || !strings.Contains(description, " ") {
		partial.add(weightLowQualityDescription,
			"Description is too short or low quality",
			"Request a more detailed description")
	}

	for _, keyword := range e.spamKeywords {
		if strings.Contains(lower, keyword) {
			partial.add(weightSpamKeywords,
				"Description contains spam keywords",
				"Review the description for spam")
			break
		}
	}

	allCaps := len(description) > 20 && description == strings.ToUpper(description)
	shouting := len(exclamationRuns.FindAllString(description, -1)) > 2
	if allCaps || shouting {
		partial.add(weightSuspiciousPatterns,
			"Description formatting looks suspicious",
			"Review the description formatting")
	}

	if lead.Urgency == UrgencyFlexible {
		for _, keyword := range e.urgencyKeywords {
			if strings.Contains(lower, keyword) {
				partial.add(weightFakeUrgency,
					"Urgency keywords contradict flexible timing",
					"Confirm the actual urgency with the submitter")
				break
			}
		}
	}

	return partial
}

// ========================================
// TECHNICAL ANALYZER
// ========================================

type technicalEvaluator struct {
	provider SignalProvider
}

// NewTechnicalEvaluator wraps an external signal provider (IP reputation,
// device fingerprinting). The default provider contributes nothing.
func NewTechnicalEvaluator(provider SignalProvider) Evaluator {
	if provider == nil {
		provider = NoopSignalProvider{}
	}
	return &technicalEvaluator{provider: provider}
}

func (e *technicalEvaluator) Name() string { return "technical" }

func (e *technicalEvaluator) Evaluate(ctx context.Context, lead *Lead, _ []SubmissionHistoryEntry, _ time.Time) PartialScore {
	partial, err := e.provider.Analyze(ctx, lead)
	if err != nil {
		return PartialScore{}
	}
	return partial
}

// add records a triggered rule on the partial score
func (p *PartialScore) add(weight int, reason, recommendation string) {
	p.Score += weight
	p.Reasons = append(p.Reasons, reason)
	p.Recommendations = append(p.Recommendations, recommendation)
}
