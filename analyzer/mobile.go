package analyzer

import (
	"strings"

	"github.com/seo-optimizer/auditor/extractor"
)

// viewportParams splits a viewport content string into lowercase key/value pairs.
func viewportParams(content string) map[string]string {
	params := make(map[string]string)
	for _, part := range strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == ';' }) {
		key, value, _ := strings.Cut(part, "=")
		params[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(value))
	}
	return params
}

// analyzeMobile scores mobile readiness from markup alone. Base 50, clamped.
func analyzeMobile(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(MobileFactor).(*MobileAnalysis)
	f.MobileCompatible = page.MobileCompatible
	f.Viewport = page.Meta.Viewport
	f.MediaQueries = page.Resources.MediaQueries
	f.TouchIcon = page.Resources.TouchIcon
	f.ThemeColor = page.Meta.ThemeColor != ""
	f.Plugins = page.Resources.Plugins
	for _, img := range page.Images {
		if img.Srcset {
			f.ResponsiveImages++
		}
	}
	f.ResponsiveImages += page.Structure.Pictures

	params := viewportParams(page.Meta.Viewport)
	_, f.InitialScale = params["initial-scale"]
	f.ZoomDisabled = params["user-scalable"] == "no" || params["user-scalable"] == "0" ||
		params["maximum-scale"] == "1" || params["maximum-scale"] == "1.0"

	score := 50
	if params["width"] == "device-width" {
		score += 20
	} else {
		f.recommend("Add a responsive viewport meta tag: <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
	}
	if page.Meta.Viewport != "" && !f.ZoomDisabled {
		score += 5
	}
	if f.ZoomDisabled {
		f.recommend("Allow users to zoom: remove user-scalable=no and maximum-scale=1 from the viewport")
	}
	if f.InitialScale {
		score += 5
	}
	if f.ResponsiveImages > 0 {
		score += 5
	}
	if f.TouchIcon || f.ThemeColor {
		score += 5
	}
	if f.MediaQueries > 0 {
		score += 5
	}
	if f.Plugins > 0 {
		score -= 10
		f.recommend("Remove plugin content (object/embed/applet), which mobile browsers do not support")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
