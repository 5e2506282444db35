package service

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/repository"
)

// Violation is one rule match found in a candidate message.
type Violation struct {
	RuleID     string             `json:"rule_id"`
	RuleType   model.RuleType     `json:"rule_type"`
	Action     model.SafetyAction `json:"action"`
	Matched    string             `json:"matched"`
	Disclaimer string             `json:"disclaimer,omitempty"`
}

// SafetyCheckResult is the verdict for a candidate message. Safe is false
// only when the effective action is block. ModifiedMessage is set when the
// effective action is add_disclaimer.
type SafetyCheckResult struct {
	Safe            bool               `json:"safe"`
	Violations      []Violation        `json:"violations"`
	Action          model.SafetyAction `json:"action,omitempty"`
	ModifiedMessage string             `json:"modified_message,omitempty"`
}

type cachedRules struct {
	rules     []*model.SafetyRule
	expiresAt time.Time
}

// SafetyService evaluates candidate messages against the union of global
// and tenant-scoped safety rules. Rules are cached per tenant with a
// bounded TTL; the cache lives on the instance so separate engines (e.g.
// in tests) never share stale state.
type SafetyService struct {
	Rules   repository.SafetyRuleRepositoryInterface
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	TTL     time.Duration

	mu    sync.Mutex
	cache map[string]cachedRules
}

func NewSafetyService(rules repository.SafetyRuleRepositoryInterface, logger *logrus.Logger, m *metrics.Metrics, ttl time.Duration) *SafetyService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SafetyService{
		Rules:   rules,
		Logger:  logger,
		Metrics: m,
		TTL:     ttl,
		cache:   make(map[string]cachedRules),
	}
}

// CheckMessage evaluates every active applicable rule against the message.
// When several rules match, the highest-priority action wins
// (block > handoff > warn > add_disclaimer).
func (s *SafetyService) CheckMessage(text string, tenantID string, agent model.AgentType) (*SafetyCheckResult, error) {
	rules, err := s.rulesFor(tenantID)
	if err != nil {
		return nil, err
	}

	result := &SafetyCheckResult{Safe: true, Violations: []Violation{}}
	lower := strings.ToLower(text)

	for _, rule := range rules {
		if !rule.Active || !rule.AppliesTo(agent) {
			continue
		}
		if matched, what := s.match(rule, text, lower); matched {
			result.Violations = append(result.Violations, Violation{
				RuleID:     rule.ID,
				RuleType:   rule.RuleType,
				Action:     rule.Action,
				Matched:    what,
				Disclaimer: rule.DisclaimerText(),
			})
		}
	}

	if len(result.Violations) == 0 {
		return result, nil
	}

	for _, v := range result.Violations {
		if v.Action.Priority() > result.Action.Priority() {
			result.Action = v.Action
		}
	}

	if s.Metrics != nil {
		s.Metrics.SafetyViolations.WithLabelValues(string(result.Action)).Inc()
	}

	switch result.Action {
	case model.ActionBlock:
		result.Safe = false
	case model.ActionAddDisclaimer:
		modified := text
		for _, v := range result.Violations {
			if v.Disclaimer != "" {
				modified += "\n\n" + v.Disclaimer
			}
		}
		result.ModifiedMessage = modified
	}

	return result, nil
}

// match reports whether the rule hits the message, and on what. Keywords
// match as case-insensitive substrings; patterns as case-insensitive
// regular expressions. A malformed pattern is logged and skipped.
func (s *SafetyService) match(rule *model.SafetyRule, text, lower string) (bool, string) {
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true, kw
		}
	}
	for _, pattern := range rule.Patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"pattern": pattern,
			}).Warn("skipping malformed safety rule pattern")
			continue
		}
		if re.MatchString(text) {
			return true, pattern
		}
	}
	return false, ""
}

// rulesFor returns the tenant's applicable rules, served from the
// per-tenant cache while fresh.
func (s *SafetyService) rulesFor(tenantID string) ([]*model.SafetyRule, error) {
	s.mu.Lock()
	entry, ok := s.cache[tenantID]
	s.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.rules, nil
	}

	rules, err := s.Rules.ListActive(tenantID)
	if err != nil {
		// Serve stale rules rather than failing the message when the
		// store read errors and a cached copy exists.
		if ok {
			s.Logger.WithError(err).WithField("tenant_id", tenantID).Warn("safety rule refresh failed, serving cached rules")
			return entry.rules, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[tenantID] = cachedRules{rules: rules, expiresAt: time.Now().Add(s.TTL)}
	s.mu.Unlock()
	return rules, nil
}
