// cmd/seeder/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reviewloop/outreach-backend/internal/config"
	"github.com/reviewloop/outreach-backend/internal/db"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/service"
)

func main() {
	logger := logrus.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()
	db.Init(cfg.DatabaseURL, logger)

	schema, err := os.ReadFile("seed/schema.sql")
	if err != nil {
		log.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.DB.Exec(string(schema)); err != nil {
		log.Fatalf("failed to execute schema: %v", err)
	}
	fmt.Println("Seeded: seed/schema.sql")

	ruleRepo := &repository.SafetyRuleRepository{DB: db.DB}
	for _, rule := range defaultGlobalRules() {
		if err := ruleRepo.Create(rule); err != nil {
			log.Fatalf("failed to seed safety rule %s: %v", rule.ID, err)
		}
	}
	fmt.Println("Seeded: global safety rules")

	templateRepo := &repository.TemplateRepository{DB: db.DB}
	for _, tpl := range demoTemplates("demo-tenant") {
		if err := templateRepo.Create(tpl); err != nil {
			log.Fatalf("failed to seed template %s: %v", tpl.Name, err)
		}
	}
	fmt.Println("Seeded: demo tenant templates")

	fmt.Println("Database seeding completed successfully!")
}

// defaultGlobalRules is the baseline guardrail set every tenant starts
// with: no professional advice from an automated sender, escalation
// triggers routed to humans, and a marketing disclaimer.
func defaultGlobalRules() []*model.SafetyRule {
	return []*model.SafetyRule{
		{
			ID:       uuid.New().String(),
			RuleType: model.RuleProhibitedTopic,
			Keywords: []string{"medical advice", "diagnosis", "prescription", "legal advice", "lawsuit", "guaranteed return", "investment advice"},
			Action:   model.ActionBlock,
			Active:   true,
		},
		{
			ID:       uuid.New().String(),
			RuleType: model.RuleHandoffTrigger,
			Keywords: []string{"speak to a human", "real person", "talk to someone", "manager", "complaint", "refund", "sue", "attorney"},
			Action:   model.ActionHandoff,
			Active:   true,
		},
		{
			ID:       uuid.New().String(),
			RuleType: model.RuleHandoffTrigger,
			Patterns: []string{`\b(emergency|urgent(ly)?|asap)\b`},
			Action:   model.ActionHandoff,
			Active:   true,
		},
		{
			ID:       uuid.New().String(),
			RuleType: model.RuleRequiredDisclaimer,
			Keywords: []string{"discount", "% off", "limited time", "special offer"},
			Action:   model.ActionAddDisclaimer,
			Metadata: map[string]string{
				"disclaimer": "Offer terms and conditions apply. Reply STOP to opt out.",
			},
			Active: true,
		},
	}
}

// demoTemplates materializes the built-in message banks as editable
// records for one tenant, so the template admin surface has something to
// show out of the box.
func demoTemplates(tenantID string) []*model.ResponseTemplate {
	templates := []*model.ResponseTemplate{}
	for step := 0; step < 4; step++ {
		templates = append(templates, &model.ResponseTemplate{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			AgentType: model.AgentReviewRequest,
			Name:      service.ReviewTemplateName(step),
			Category:  "review_request",
			Text:      service.DefaultReviewTemplate(step),
		})
	}
	for _, trigger := range []model.TriggerType{
		model.TriggerMissedCall, model.TriggerAbandonedQuote,
		model.TriggerNoResponse, model.TriggerColdLead,
	} {
		templates = append(templates, &model.ResponseTemplate{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			AgentType: model.AgentLeadNurture,
			Name:      service.NurtureTemplateName(trigger),
			Category:  "nurture_opener",
			Text:      service.NurtureMessage(trigger, 0),
		})
	}
	return templates
}
