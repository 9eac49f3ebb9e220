package analyzer

import (
	"time"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/extractor"
)

// Category is the label derived from a score.
type Category string

const (
	Excellent Category = "excellent"
	Good      Category = "good"
	NeedsWork Category = "needs-work"
	Poor      Category = "poor"
)

// CategoryFor maps a score to its category: >= 90 excellent, >= 70 good, >= 50 needs-work.
func CategoryFor(score int) Category {
	switch {
	case score >= 90:
		return Excellent
	case score >= 70:
		return Good
	case score >= 50:
		return NeedsWork
	default:
		return Poor
	}
}

// SeoScore is an integer score in [0,100] and its derived category. Build it with NewScore.
type SeoScore struct {
	Score    int      `json:"score"`
	Category Category `json:"category"`
}

// NewScore clamps score to [0,100] and derives the category.
func NewScore(score int) SeoScore {
	score = min(max(score, 0), 100)
	return SeoScore{Score: score, Category: CategoryFor(score)}
}

// FactorName is the stable wire key of a factor.
type FactorName string

const (
	KeywordFactor        FactorName = "keywordAnalysis"
	MetaTagsFactor       FactorName = "metaTagsAnalysis"
	ContentFactor        FactorName = "contentAnalysis"
	InternalLinksFactor  FactorName = "internalLinksAnalysis"
	ImageFactor          FactorName = "imageAnalysis"
	SchemaMarkupFactor   FactorName = "schemaMarkupAnalysis"
	MobileFactor         FactorName = "mobileAnalysis"
	PageSpeedFactor      FactorName = "pageSpeedAnalysis"
	UserEngagementFactor FactorName = "userEngagementAnalysis"
	AuthorityFactor      FactorName = "authorityAnalysis"
)

// FactorNames lists every factor in reporting order.
var FactorNames = []FactorName{
	KeywordFactor, MetaTagsFactor, ContentFactor, InternalLinksFactor, ImageFactor,
	SchemaMarkupFactor, MobileFactor, PageSpeedFactor, UserEngagementFactor, AuthorityFactor,
}

// Weights are looked up by factor name, never by position.
var Weights = map[FactorName]float64{
	KeywordFactor:        0.15,
	MetaTagsFactor:       0.15,
	ContentFactor:        0.15,
	InternalLinksFactor:  0.10,
	MobileFactor:         0.10,
	PageSpeedFactor:      0.10,
	ImageFactor:          0.08,
	SchemaMarkupFactor:   0.07,
	UserEngagementFactor: 0.06,
	AuthorityFactor:      0.04,
}

var factorLabels = map[FactorName]string{
	KeywordFactor:        "Keyword usage",
	MetaTagsFactor:       "Meta tags",
	ContentFactor:        "Content quality",
	InternalLinksFactor:  "Internal linking",
	ImageFactor:          "Image optimization",
	SchemaMarkupFactor:   "Structured data",
	MobileFactor:         "Mobile friendliness",
	PageSpeedFactor:      "Page speed",
	UserEngagementFactor: "User engagement",
	AuthorityFactor:      "Authority (E-E-A-T)",
}

// Label returns a human-readable factor name.
func (n FactorName) Label() string {
	if l, ok := factorLabels[n]; ok {
		return l
	}
	return string(n)
}

// Factor is implemented only by the factor result types of this package.
type Factor interface {
	Name() FactorName
	Base() *FactorBase
	factor()
}

// FactorBase carries what every factor reports.
type FactorBase struct {
	OverallScore    SeoScore `json:"overallScore"`
	Fallback        bool     `json:"fallback,omitempty"`
	FallbackReason  string   `json:"fallbackReason,omitempty"`
	Recommendations []string `json:"recommendations"`
}

func (b *FactorBase) Base() *FactorBase { return b }
func (*FactorBase) factor()             {}

func (b *FactorBase) recommend(r string) {
	b.Recommendations = append(b.Recommendations, r)
}

// KeywordAnalysis measures use of the primary keyword.
type KeywordAnalysis struct {
	FactorBase
	PrimaryKeyword  string   `json:"primaryKeyword"`
	Derived         bool     `json:"derived"`
	Occurrences     int      `json:"occurrences"`
	Density         float64  `json:"density"`
	InTitle         bool     `json:"inTitle"`
	InDescription   bool     `json:"inDescription"`
	InH1            bool     `json:"inH1"`
	InH2            bool     `json:"inH2"`
	InFirst100Words bool     `json:"inFirst100Words"`
	InURL           bool     `json:"inUrl"`
	InImageAlt      bool     `json:"inImageAlt"`
	Stuffing        bool     `json:"stuffing"`
	RelatedTerms    []string `json:"relatedTerms"`
}

// MetaTagsAnalysis covers title, description and head metadata.
type MetaTagsAnalysis struct {
	FactorBase
	Title                string `json:"title"`
	TitleLength          int    `json:"titleLength"`
	HasTitle             bool   `json:"hasTitle"`
	KeywordInTitle       bool   `json:"keywordInTitle"`
	Description          string `json:"description"`
	DescriptionLength    int    `json:"descriptionLength"`
	HasDescription       bool   `json:"hasDescription"`
	KeywordInDescription bool   `json:"keywordInDescription"`
	Canonical            string `json:"canonical,omitempty"`
	HasCanonical         bool   `json:"hasCanonical"`
	Robots               string `json:"robots,omitempty"`
	HasRobots            bool   `json:"hasRobots"`
	HasOpenGraph         bool   `json:"hasOpenGraph"`
	HasTwitterCard       bool   `json:"hasTwitterCard"`
	DuplicateTitle       bool   `json:"duplicateTitle"`
	DuplicateDescription bool   `json:"duplicateDescription"`
	NoIndex              bool   `json:"noindex"`
}

// ContentAnalysis covers text depth, structure and readability.
type ContentAnalysis struct {
	FactorBase
	WordCount              int     `json:"wordCount"`
	ParagraphCount         int     `json:"paragraphCount"`
	H1Count                int     `json:"h1Count"`
	H2Count                int     `json:"h2Count"`
	H3Count                int     `json:"h3Count"`
	ProperHeadingStructure bool    `json:"properHeadingStructure"`
	ReadabilityGrade       float64 `json:"readabilityGrade"`
	ReadingEase            float64 `json:"readingEase"`
	ImageCount             int     `json:"imageCount"`
	ThinContent            bool    `json:"thinContent"`

	// Accessibility is reported but does not change the score.
	Accessibility extractor.Accessibility `json:"accessibility"`
}

// InternalLinksAnalysis covers same-site linking.
type InternalLinksAnalysis struct {
	FactorBase
	InternalLinks      int `json:"internalLinks"`
	UniqueInternal     int `json:"uniqueInternalLinks"`
	ExternalLinks      int `json:"externalLinks"`
	BrokenLinks        int `json:"brokenLinks"`
	DescriptiveAnchors int `json:"descriptiveAnchors"`
	GenericAnchors     int `json:"genericAnchors"`
	NoFollowLinks      int `json:"nofollowLinks"`
}

// ImageAnalysis covers alt text and optimization hints.
type ImageAnalysis struct {
	FactorBase
	TotalImages     int     `json:"totalImages"`
	WithAlt         int     `json:"imagesWithAlt"`
	MissingAlt      int     `json:"imagesMissingAlt"`
	AltCoverage     float64 `json:"altCoverage"`
	OptimizedImages int     `json:"optimizedImages"`
	ModernFormats   int     `json:"modernFormats"`
	LazyLoaded      int     `json:"lazyLoaded"`
	Responsive      int     `json:"responsive"`
}

// SchemaMarkupAnalysis covers structured data.
type SchemaMarkupAnalysis struct {
	FactorBase
	HasStructuredData bool     `json:"hasStructuredData"`
	Types             []string `json:"types"`
	Formats           []string `json:"formats"`
	Product           bool     `json:"product"`
	Organization      bool     `json:"organization"`
	Article           bool     `json:"article"`
	Breadcrumb        bool     `json:"breadcrumb"`
	FAQ               bool     `json:"faq"`
}

// MobileAnalysis is computed from markup only; no device rendering is involved.
type MobileAnalysis struct {
	FactorBase
	MobileCompatible bool   `json:"mobileCompatible"`
	Viewport         string `json:"viewport,omitempty"`
	InitialScale     bool   `json:"initialScale"`
	ZoomDisabled     bool   `json:"zoomDisabled"`
	ResponsiveImages int    `json:"responsiveImages"`
	MediaQueries     int    `json:"mediaQueries"`
	TouchIcon        bool   `json:"touchIcon"`
	ThemeColor       bool   `json:"themeColor"`
	Plugins          int    `json:"plugins"`
}

// PageSpeedAnalysis uses the measured fetch of the page as its load time.
type PageSpeedAnalysis struct {
	FactorBase
	LoadTimeMs       int64  `json:"loadTime"`
	PageSize         int64  `json:"pageSize"`
	LoadTimeSeverity string `json:"loadTimeSeverity"`
	PageSizeSeverity string `json:"pageSizeSeverity"`
	ExternalScripts  int    `json:"externalScripts"`
	Stylesheets      int    `json:"stylesheets"`
	LazyImages       int    `json:"lazyImages"`
}

// UserEngagementAnalysis estimates engagement from content signals. EstimatedBounceRate and
// ReadingTimeMinutes are proxies, not measurements.
type UserEngagementAnalysis struct {
	FactorBase
	EstimatedBounceRate float64 `json:"estimatedBounceRate"`
	ReadingTimeMinutes  float64 `json:"readingTimeMinutes"`
	ContentDepth        string  `json:"contentDepth"`
	Lists               int     `json:"lists"`
	MediaElements       int     `json:"mediaElements"`
	InternalLinks       int     `json:"internalLinks"`
	CallsToAction       int     `json:"callsToAction"`
	SubHeadings         int     `json:"subHeadings"`
	AvgParagraphWords   float64 `json:"avgParagraphWords"`
	SocialLinks         int     `json:"socialLinks"`
}

// AuthorityAnalysis collects E-E-A-T signals.
type AuthorityAnalysis struct {
	FactorBase
	HasAuthor          bool     `json:"hasAuthor"`
	Author             string   `json:"author,omitempty"`
	HasPublishedDate   bool     `json:"hasPublishedDate"`
	HasModifiedDate    bool     `json:"hasModifiedDate"`
	AboutPage          bool     `json:"aboutPage"`
	ContactPage        bool     `json:"contactPage"`
	PolicyPages        bool     `json:"policyPages"`
	Citations          int      `json:"citations"`
	ExpertiseSignals   []string `json:"expertiseSignals"`
	HTTPS              bool     `json:"https"`
	MixedContent       bool     `json:"mixedContent"`
	MixedContentCount  int      `json:"mixedContentCount"`
	SecurityHeaders    []string `json:"securityHeaders"`
	HasSecurityHeaders bool     `json:"hasSecurityHeaders"`
	OrganizationSchema bool     `json:"organizationSchema"`
	PersonSchema       bool     `json:"personSchema"`
}

func (*KeywordAnalysis) Name() FactorName        { return KeywordFactor }
func (*MetaTagsAnalysis) Name() FactorName       { return MetaTagsFactor }
func (*ContentAnalysis) Name() FactorName        { return ContentFactor }
func (*InternalLinksAnalysis) Name() FactorName  { return InternalLinksFactor }
func (*ImageAnalysis) Name() FactorName          { return ImageFactor }
func (*SchemaMarkupAnalysis) Name() FactorName   { return SchemaMarkupFactor }
func (*MobileAnalysis) Name() FactorName         { return MobileFactor }
func (*PageSpeedAnalysis) Name() FactorName      { return PageSpeedFactor }
func (*UserEngagementAnalysis) Name() FactorName { return UserEngagementFactor }
func (*AuthorityAnalysis) Name() FactorName      { return AuthorityFactor }

// newFactor returns the zero value of the named factor.
func newFactor(name FactorName) Factor {
	switch name {
	case KeywordFactor:
		return &KeywordAnalysis{RelatedTerms: []string{}}
	case MetaTagsFactor:
		return &MetaTagsAnalysis{}
	case ContentFactor:
		return &ContentAnalysis{}
	case InternalLinksFactor:
		return &InternalLinksAnalysis{}
	case ImageFactor:
		return &ImageAnalysis{}
	case SchemaMarkupFactor:
		return &SchemaMarkupAnalysis{Types: []string{}, Formats: []string{}}
	case MobileFactor:
		return &MobileAnalysis{}
	case PageSpeedFactor:
		return &PageSpeedAnalysis{}
	case UserEngagementFactor:
		return &UserEngagementAnalysis{}
	case AuthorityFactor:
		return &AuthorityAnalysis{ExpertiseSignals: []string{}, SecurityHeaders: []string{}}
	}
	return nil
}

// defaultFactor is the stand-in for a factor that could not be computed: 50/needs-work, flagged.
func defaultFactor(name FactorName, reason string) Factor {
	f := newFactor(name)
	b := f.Base()
	b.OverallScore = NewScore(50)
	b.Fallback = true
	b.FallbackReason = reason
	b.Recommendations = []string{}
	return f
}

// SessionStats describes the network work done for one analysis.
type SessionStats struct {
	SessionID      string        `json:"sessionId"`
	NetworkFetches int64         `json:"networkFetches"`
	CacheHits      int64         `json:"cacheHits"`
	LinksProbed    int           `json:"linksProbed"`
	Duration       time.Duration `json:"duration"`
}

// AnalysisResult is the outcome of one analysis. Every factor key is always present; on a stage
// error Error and ErrorKind are set and every factor is the flagged default.
type AnalysisResult struct {
	URL             string    `json:"url"`
	FinalURL        string    `json:"finalUrl,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	OverallScore    SeoScore  `json:"overallScore"`
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	Recommendations []string  `json:"recommendations"`
	Error           string    `json:"error,omitempty"`
	ErrorKind       errs.Kind `json:"errorKind,omitempty"`
	StatusCode      int       `json:"statusCode,omitempty"`

	KeywordAnalysis        *KeywordAnalysis        `json:"keywordAnalysis"`
	MetaTagsAnalysis       *MetaTagsAnalysis       `json:"metaTagsAnalysis"`
	ContentAnalysis        *ContentAnalysis        `json:"contentAnalysis"`
	InternalLinksAnalysis  *InternalLinksAnalysis  `json:"internalLinksAnalysis"`
	ImageAnalysis          *ImageAnalysis          `json:"imageAnalysis"`
	SchemaMarkupAnalysis   *SchemaMarkupAnalysis   `json:"schemaMarkupAnalysis"`
	MobileAnalysis         *MobileAnalysis         `json:"mobileAnalysis"`
	PageSpeedAnalysis      *PageSpeedAnalysis      `json:"pageSpeedAnalysis"`
	UserEngagementAnalysis *UserEngagementAnalysis `json:"userEngagementAnalysis"`
	AuthorityAnalysis      *AuthorityAnalysis      `json:"authorityAnalysis"`

	Session SessionStats `json:"session"`
}

// Failed reports whether the analysis stopped at a pipeline stage.
func (r *AnalysisResult) Failed() bool {
	return r.Error != ""
}

// Factors returns every factor in reporting order.
func (r *AnalysisResult) Factors() []Factor {
	return []Factor{
		r.KeywordAnalysis, r.MetaTagsAnalysis, r.ContentAnalysis, r.InternalLinksAnalysis,
		r.ImageAnalysis, r.SchemaMarkupAnalysis, r.MobileAnalysis, r.PageSpeedAnalysis,
		r.UserEngagementAnalysis, r.AuthorityAnalysis,
	}
}

// Factor returns the named factor.
func (r *AnalysisResult) Factor(name FactorName) Factor {
	for _, f := range r.Factors() {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func (r *AnalysisResult) setFactor(f Factor) {
	switch v := f.(type) {
	case *KeywordAnalysis:
		r.KeywordAnalysis = v
	case *MetaTagsAnalysis:
		r.MetaTagsAnalysis = v
	case *ContentAnalysis:
		r.ContentAnalysis = v
	case *InternalLinksAnalysis:
		r.InternalLinksAnalysis = v
	case *ImageAnalysis:
		r.ImageAnalysis = v
	case *SchemaMarkupAnalysis:
		r.SchemaMarkupAnalysis = v
	case *MobileAnalysis:
		r.MobileAnalysis = v
	case *PageSpeedAnalysis:
		r.PageSpeedAnalysis = v
	case *UserEngagementAnalysis:
		r.UserEngagementAnalysis = v
	case *AuthorityAnalysis:
		r.AuthorityAnalysis = v
	}
}
