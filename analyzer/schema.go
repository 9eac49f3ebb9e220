package analyzer

import (
	"github.com/seo-optimizer/auditor/extractor"
)

// analyzeSchemaMarkup scores structured data presence and the recognized type families.
func analyzeSchemaMarkup(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(SchemaMarkupFactor).(*SchemaMarkupAnalysis)
	f.Types = append(f.Types, page.SchemaTypes...)
	f.HasStructuredData = len(page.SchemaTypes) > 0

	formats := make(map[string]bool)
	for _, item := range page.Schema {
		if len(item.Types) > 0 && !formats[item.Source] {
			formats[item.Source] = true
			f.Formats = append(f.Formats, item.Source)
		}
	}

	for _, t := range page.SchemaTypes {
		switch t {
		case "Product", "Offer", "AggregateOffer":
			f.Product = true
		case "Organization", "LocalBusiness", "Corporation", "Store", "Restaurant", "ProfessionalService",
			"HomeAndConstructionBusiness", "Plumber", "Electrician":
			f.Organization = true
		case "Article", "BlogPosting", "NewsArticle", "TechArticle":
			f.Article = true
		case "BreadcrumbList":
			f.Breadcrumb = true
		case "FAQPage", "HowTo":
			f.FAQ = true
		}
	}

	score := 50
	if !f.HasStructuredData {
		f.recommend("Add structured data (JSON-LD) describing the page, e.g. Organization, Article or Product")
		f.OverallScore = NewScore(score)
		return f, nil
	}
	score += 25
	for _, family := range []bool{f.Product, f.Organization, f.Article, f.Breadcrumb, f.FAQ} {
		if family {
			score += 5
		}
	}
	if !f.Breadcrumb {
		f.recommend("Add BreadcrumbList markup to describe the page's position in the site")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
