package pattern

import (
	"regexp"
	"strings"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Specificity weights. A static segment outranks a dynamic one, which
// outranks a splat; a splat anywhere costs SplatPenalty and an End
// pattern earns ExactBonus over the same segments compiled as a prefix.
const (
	StaticValue   = 3
	DynamicValue  = 1
	OptionalValue = 1
	SplatValue    = 0
	SplatPenalty  = -2
	ExactBonus    = 1
)

// Options controls how a template is compiled.
type Options struct {
	// CaseSensitive makes static segments match case-sensitively.
	CaseSensitive bool

	// End anchors the pattern at the end of the pathname. Without End the
	// pattern matches any prefix that ends at a segment boundary.
	End bool

	// Strict makes an End pattern respect the template's trailing slash
	// instead of ignoring trailing slashes in the pathname.
	Strict bool
}

// Pattern is a compiled path template. It is immutable and safe for
// concurrent use.
type Pattern struct {
	template      string
	segments      []Segment
	paramNames    []string
	segmentScores []int
	score         int
	hasSplat      bool
	opts          Options
	re            *regexp.Regexp
}

// PathMatch is the result of matching a pathname against a Pattern.
type PathMatch struct {
	// Params holds decoded values keyed by parameter name; a splat is
	// stored under SplatParam. Absent optional params are omitted.
	Params map[string]string

	// Pathname is the portion of the input the pattern consumed.
	Pathname string

	// PathnameBase is Pathname without the splat value or trailing slash.
	// Descendant routes continue matching after it.
	PathnameBase string
}

// Compile compiles template into a Pattern.
func Compile(template string, opts Options) (*Pattern, error) {
	segments, err := Parse(template)
	if err != nil {
		return nil, err
	}

	p := &Pattern{
		template: template,
		segments: segments,
		opts:     opts,
	}

	var body strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case Static:
			body.WriteString("/" + regexp.QuoteMeta(seg.Value))
			p.segmentScores = append(p.segmentScores, StaticValue)
		case OptionalStatic:
			body.WriteString("(?:/" + regexp.QuoteMeta(seg.Value) + ")?")
			p.segmentScores = append(p.segmentScores, OptionalValue)
		case Dynamic:
			body.WriteString("/([^/]+)")
			p.paramNames = append(p.paramNames, seg.Value)
			p.segmentScores = append(p.segmentScores, DynamicValue)
		case OptionalDynamic:
			body.WriteString("(?:/([^/]+))?")
			p.paramNames = append(p.paramNames, seg.Value)
			p.segmentScores = append(p.segmentScores, OptionalValue)
		case Splat:
			p.hasSplat = true
			p.paramNames = append(p.paramNames, SplatParam)
			p.segmentScores = append(p.segmentScores, SplatValue)
		}
	}

	for _, s := range p.segmentScores {
		p.score += s
	}
	if p.hasSplat {
		p.score += SplatPenalty
	}
	if opts.End {
		p.score += ExactBonus
	}

	var src strings.Builder
	if !opts.CaseSensitive {
		src.WriteString("(?i)")
	}
	src.WriteString("^(")
	src.WriteString(body.String())
	switch {
	case p.hasSplat && len(segments) == 1:
		src.WriteString("/(.*))$")
	case p.hasSplat:
		src.WriteString("(?:/(.+)|/*))$")
	case len(segments) == 0:
		if opts.End {
			src.WriteString(")/?$")
		} else {
			src.WriteString(")(?:/|$)")
		}
	case opts.End && opts.Strict:
		if len(template) > 1 && strings.HasSuffix(template, "/") {
			src.WriteString("/")
		}
		src.WriteString(")$")
	case opts.End:
		src.WriteString(")/*$")
	default:
		src.WriteString(")(?:/|$)")
	}

	re, err := regexp.Compile(src.String())
	if err != nil {
		return nil, invalid("W104", template).Wrap(err)
	}
	p.re = re
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(template string, opts Options) *Pattern {
	p, err := Compile(template, opts)
	if err != nil {
		panic(err)
	}
	return p
}

// Template returns the source template.
func (p *Pattern) Template() string { return p.template }

// Segments returns the parsed segments.
func (p *Pattern) Segments() []Segment { return p.segments }

// ParamNames returns parameter names in capture order.
func (p *Pattern) ParamNames() []string { return p.paramNames }

// Score returns the specificity score.
func (p *Pattern) Score() int { return p.score }

// SegmentScores returns the per-segment scores, most significant first.
func (p *Pattern) SegmentScores() []int { return p.segmentScores }

// HasSplat reports whether the template ends in a splat.
func (p *Pattern) HasSplat() bool { return p.hasSplat }

// Options returns the options the pattern was compiled with.
func (p *Pattern) Options() Options { return p.opts }

// Regexp returns the underlying regular expression.
func (p *Pattern) Regexp() *regexp.Regexp { return p.re }

// Match matches pathname against the pattern, returning nil on a miss.
func (p *Pattern) Match(pathname string) *PathMatch {
	loc := p.re.FindStringSubmatchIndex(pathname)
	if loc == nil {
		return nil
	}

	matched := pathname[loc[2]:loc[3]]
	params := make(map[string]string, len(p.paramNames))
	var splatRaw string

	for i, name := range p.paramNames {
		start, end := loc[4+2*i], loc[5+2*i]
		isSplat := name == SplatParam
		if start < 0 {
			if isSplat {
				params[name] = ""
			}
			continue
		}
		raw := pathname[start:end]
		if isSplat {
			splatRaw = raw
		}
		value, err := routepath.DecodeSegment(raw, isSplat)
		if err != nil {
			value = raw
		}
		params[name] = value
	}

	base := matched
	if splatRaw != "" {
		base = matched[:len(matched)-len(splatRaw)]
	}

	return &PathMatch{
		Params:       params,
		Pathname:     rootIfEmpty(matched),
		PathnameBase: rootIfEmpty(trimTrailingSlashes(base)),
	}
}

// MatchPath compiles template with opts and matches pathname in one step.
func MatchPath(template string, opts Options, pathname string) (*PathMatch, error) {
	p, err := Compile(template, opts)
	if err != nil {
		return nil, err
	}
	return p.Match(pathname), nil
}

func trimTrailingSlashes(s string) string {
	for len(s) > 1 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func rootIfEmpty(s string) string {
	if s == "" {
		return "/"
	}
	return s
}
