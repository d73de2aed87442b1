package catalog

import "github.com/mewayz/workspacebilling/internal/bundle/domain"

func defaultBundles() []domain.Bundle {
	u := domain.Unlimited
	return []domain.Bundle{
		{
			ID:                domain.BundleCreator,
			Name:              "Creator Bundle",
			Description:       "Bio links, websites and AI content for creators.",
			MonthlyPriceCents: 1900,
			YearlyPriceCents:  19000,
			Features: []string{
				"basic_bio_links", "bio_link_builder", "website_builder", "template_marketplace",
				"seo_tools", "ai_content_generation", "custom_domain",
			},
			Limits: map[string]int64{
				"bio_links":      u,
				"websites":       3,
				"ai_credits":     500,
				"custom_domains": 1,
			},
		},
		{
			ID:                domain.BundleEcommerce,
			Name:              "E-commerce Bundle",
			Description:       "Online store, product catalog and payments.",
			MonthlyPriceCents: 2400,
			YearlyPriceCents:  24000,
			Features: []string{
				"ecommerce_store", "product_catalog", "payment_processing",
				"inventory_management", "discount_codes", "custom_domain",
			},
			Limits: map[string]int64{
				"products":       100,
				"discount_codes": 25,
				"custom_domains": 1,
			},
		},
		{
			ID:                domain.BundleSocialMedia,
			Name:              "Social Media Bundle",
			Description:       "Instagram lead search, scheduling and social integrations.",
			MonthlyPriceCents: 2400,
			YearlyPriceCents:  24000,
			Features: []string{
				"instagram_lead_search", "social_scheduling", "twitter_integration",
				"tiktok_integration", "hashtag_research",
			},
			Limits: map[string]int64{
				"instagram_searches": 1000,
				"scheduled_posts":    100,
				"social_accounts":    5,
			},
		},
		{
			ID:                domain.BundleEducation,
			Name:              "Education Bundle",
			Description:       "Courses, student management and certificates.",
			MonthlyPriceCents: 1500,
			YearlyPriceCents:  15000,
			Features: []string{
				"course_builder", "student_management", "certificates", "live_sessions",
			},
			Limits: map[string]int64{
				"courses":    10,
				"students":   500,
				"ai_credits": 200,
			},
		},
		{
			ID:                domain.BundleBusiness,
			Name:              "Business Bundle",
			Description:       "CRM, email marketing and workflow automation.",
			MonthlyPriceCents: 3900,
			YearlyPriceCents:  39000,
			Features: []string{
				"crm", "email_marketing", "workflow_automation", "lead_management",
				"campaign_analytics", "website_builder",
			},
			Limits: map[string]int64{
				"crm_contacts":    5000,
				"email_sends":     10000,
				"automation_runs": 500,
				"ai_credits":      1000,
				"websites":        u,
			},
		},
		{
			ID:                domain.BundleOperations,
			Name:              "Operations Bundle",
			Description:       "Bookings, invoicing and advanced forms.",
			MonthlyPriceCents: 2400,
			YearlyPriceCents:  24000,
			Features: []string{
				"basic_forms", "booking_system", "financial_management", "advanced_forms",
				"survey_builder", "escrow",
			},
			Limits: map[string]int64{
				"bookings":     u,
				"forms":        u,
				"invoices":     500,
				"crm_contacts": 1000,
			},
		},
	}
}

func defaultRules() []domain.FeatureRule {
	return []domain.FeatureRule{
		{Feature: "bio_links", LimitKey: "bio_links", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleCreator},
		{Feature: "websites", LimitKey: "websites", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleCreator},
		{Feature: "ai_content_generation", LimitKey: "ai_credits", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleCreator},
		{Feature: "ai_image_generation", LimitKey: "ai_credits", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleCreator},
		{Feature: "custom_domains", LimitKey: "custom_domains", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleCreator},
		{Feature: "products", LimitKey: "products", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleEcommerce},
		{Feature: "discount_codes", LimitKey: "discount_codes", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleEcommerce},
		{Feature: "instagram_searches", LimitKey: "instagram_searches", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleSocialMedia},
		{Feature: "scheduled_posts", LimitKey: "scheduled_posts", ResetPolicy: domain.ResetWeekly, OwningBundle: domain.BundleSocialMedia},
		{Feature: "social_accounts", LimitKey: "social_accounts", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleSocialMedia},
		{Feature: "courses", LimitKey: "courses", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleEducation},
		{Feature: "students", LimitKey: "students", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleEducation},
		{Feature: "crm_contacts", LimitKey: "crm_contacts", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleBusiness},
		{Feature: "email_sends", LimitKey: "email_sends", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleBusiness},
		{Feature: "automation_runs", LimitKey: "automation_runs", ResetPolicy: domain.ResetDaily, OwningBundle: domain.BundleBusiness},
		{Feature: "bookings", LimitKey: "bookings", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleOperations},
		{Feature: "forms", LimitKey: "forms", ResetPolicy: domain.ResetNever, OwningBundle: domain.BundleOperations},
		{Feature: "invoices", LimitKey: "invoices", ResetPolicy: domain.ResetMonthly, OwningBundle: domain.BundleOperations},
	}
}

func defaultFreeTier() domain.FreeTier {
	return domain.FreeTier{
		Features: []string{"basic_bio_links", "basic_forms", "basic_analytics"},
		Limits: map[string]int64{
			"bio_links": 1,
			"forms":     1,
		},
	}
}
