package extractor

import "time"

// Meta holds the head-level metadata of a page.
type Meta struct {
	Description string            `json:"description"`
	Keywords    string            `json:"keywords,omitempty"`
	Author      string            `json:"author,omitempty"`
	Robots      string            `json:"robots,omitempty"`
	Googlebot   string            `json:"googlebot,omitempty"`
	Viewport    string            `json:"viewport,omitempty"`
	Canonical   string            `json:"canonical,omitempty"`
	ThemeColor  string            `json:"themeColor,omitempty"`
	OpenGraph   map[string]string `json:"openGraph"`
	Twitter     map[string]string `json:"twitter"`
}

// Headings lists the non-empty heading texts per level, in document order.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
	H4 []string `json:"h4"`
	H5 []string `json:"h5"`
	H6 []string `json:"h6"`
}

// Link is one resolved anchor. Broken is only ever set by extraction (for unresolvable hrefs)
// or by the link verifier.
type Link struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchorText"`
	Broken     bool   `json:"broken"`
	NoFollow   bool   `json:"nofollow,omitempty"`
}

// Image is one resolved image reference. HasAlt distinguishes an absent alt from alt="".
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	HasAlt bool   `json:"hasAlt"`
	Lazy   bool   `json:"lazy,omitempty"`
	Sized  bool   `json:"sized,omitempty"`
	Srcset bool   `json:"srcset,omitempty"`
	Format string `json:"format,omitempty"`
}

// SchemaItem is one structured-data block.
type SchemaItem struct {
	Types   []string `json:"types"`
	Source  string   `json:"source"` // json-ld, microdata or rdfa
	RawJSON string   `json:"rawJson,omitempty"`
}

// Security flags derived from the final URL, resources and response headers.
type Security struct {
	HasHTTPS           bool     `json:"hasHttps"`
	HasMixedContent    bool     `json:"hasMixedContent"`
	HasSecurityHeaders bool     `json:"hasSecurityHeaders"`
	SecurityHeaders    []string `json:"securityHeaders"`
	MixedContentCount  int      `json:"mixedContentCount"`
}

// Accessibility flags.
type Accessibility struct {
	MissingAltText          int  `json:"missingAltText"`
	HasARIA                 bool `json:"hasAria"`
	ARIAAttributeCount      int  `json:"ariaAttributeCount"`
	ProperHeadingStructure  bool `json:"properHeadingStructure"`
	HasLang                 bool `json:"hasLang"`
	FormInputsWithoutLabels int  `json:"formInputsWithoutLabels"`
}

// Resources counts what the page loads.
type Resources struct {
	ExternalScripts int  `json:"externalScripts"`
	InlineScripts   int  `json:"inlineScripts"`
	Stylesheets     int  `json:"stylesheets"`
	InlineStyles    int  `json:"inlineStyles"`
	MediaQueries    int  `json:"mediaQueries"`
	Plugins         int  `json:"plugins"`
	Favicon         bool `json:"favicon"`
	TouchIcon       bool `json:"touchIcon"`
}

// Structure counts content building blocks used by the engagement and mobile scorers.
type Structure struct {
	Lists         int  `json:"lists"`
	Tables        int  `json:"tables"`
	Forms         int  `json:"forms"`
	Buttons       int  `json:"buttons"`
	Videos        int  `json:"videos"`
	Audio         int  `json:"audio"`
	Embeds        int  `json:"embeds"`
	Pictures      int  `json:"pictures"`
	SocialLinks   int  `json:"socialLinks"`
	CallsToAction int  `json:"callsToAction"`
	Blockquotes   int  `json:"blockquotes"`
	HasNav        bool `json:"hasNav"`
	HasFooter     bool `json:"hasFooter"`
}

// Authorship collects E-E-A-T related signals.
type Authorship struct {
	HasAuthor    bool   `json:"hasAuthor"`
	Author       string `json:"author,omitempty"`
	HasPublished bool   `json:"hasPublishedDate"`
	HasModified  bool   `json:"hasModifiedDate"`
	AboutLink    bool   `json:"aboutLink"`
	ContactLink  bool   `json:"contactLink"`
	PolicyLink   bool   `json:"policyLink"`
	Citations    int    `json:"citations"`
}

// Issues are page-level SEO problems detected during extraction.
type Issues struct {
	NoIndex              bool `json:"noindex"`
	DuplicateTitle       bool `json:"duplicateTitle"`
	DuplicateDescription bool `json:"duplicateDescription"`
	ThinContent          bool `json:"thinContent"`
	MissingH1            bool `json:"missingH1"`
	MissingTitle         bool `json:"missingTitle"`
	MissingDescription   bool `json:"missingDescription"`
}

// Page is everything extracted from one fetched HTML document. It is derived deterministically
// from a single fetch result; only the link verifier touches it afterwards, and only Link.Broken.
type Page struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Title      string `json:"title"`
	TitleCount int    `json:"titleCount"`

	Meta     Meta     `json:"meta"`
	Headings Headings `json:"headings"`

	Text       string   `json:"-"`
	WordCount  int      `json:"wordCount"`
	Paragraphs []string `json:"paragraphs"`

	InternalLinks []Link       `json:"internalLinks"`
	ExternalLinks []Link       `json:"externalLinks"`
	Images        []Image      `json:"images"`
	Schema        []SchemaItem `json:"schema"`
	SchemaTypes   []string     `json:"schemaTypes"`

	MobileCompatible bool          `json:"mobileCompatible"`
	Security         Security      `json:"security"`
	Accessibility    Accessibility `json:"accessibility"`
	Resources        Resources     `json:"resources"`
	Structure        Structure     `json:"structure"`
	Authorship       Authorship    `json:"authorship"`
	Issues           Issues        `json:"issues"`

	Lang             string `json:"lang,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`

	LoadTime time.Duration `json:"loadTime"`
	ByteSize int64         `json:"byteSize"`
}

// HeadingCount returns the number of headings of the given level (1-6).
func (p *Page) HeadingCount(level int) int {
	switch level {
	case 1:
		return len(p.Headings.H1)
	case 2:
		return len(p.Headings.H2)
	case 3:
		return len(p.Headings.H3)
	case 4:
		return len(p.Headings.H4)
	case 5:
		return len(p.Headings.H5)
	case 6:
		return len(p.Headings.H6)
	}
	return 0
}

// BrokenInternalLinks counts internal links currently flagged broken.
func (p *Page) BrokenInternalLinks() int {
	n := 0
	for _, l := range p.InternalLinks {
		if l.Broken {
			n++
		}
	}
	return n
}
