package pattern

import (
	"errors"
	"reflect"
	"testing"

	rerrors "github.com/vango-dev/waypoint/internal/errors"
)

func TestParse(t *testing.T) {
	segs, err := Parse("/users/:id/files?/:rev?/*")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []Segment{
		{Kind: Static, Value: "users"},
		{Kind: Dynamic, Value: "id"},
		{Kind: OptionalStatic, Value: "files"},
		{Kind: OptionalDynamic, Value: "rev"},
		{Kind: Splat, Value: SplatParam},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("Parse = %+v, want %+v", segs, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		code     string
	}{
		{"splat not last", "files/*/raw", "W101"},
		{"partial splat", "files*", "W102"},
		{"duplicate param", "a/:id/b/:id", "W103"},
		{"empty param name", "a/:", "W104"},
		{"bad param name", "a/:na.me", "W104"},
		{"misplaced optional", "a/b?c", "W105"},
		{"bare optional", "a/?", "W105"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.template, Options{End: true})
			if err == nil {
				t.Fatalf("Compile(%q) expected error", tt.template)
			}
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("error %v does not wrap ErrInvalidPattern", err)
			}
			var cfgErr *rerrors.Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %v is not *errors.Error", err)
			}
			if cfgErr.Code != tt.code {
				t.Errorf("Code = %q, want %q", cfgErr.Code, tt.code)
			}
		})
	}
}

func TestSplatTrailingSlashAllowed(t *testing.T) {
	if _, err := Compile("files/*/", Options{End: true}); err != nil {
		t.Errorf("trailing slash after splat should be allowed: %v", err)
	}
}

func TestCompileScore(t *testing.T) {
	tests := []struct {
		template string
		end      bool
		want     int
	}{
		{"users/me", true, 3 + 3 + ExactBonus},
		{"users/:id", true, 3 + 1 + ExactBonus},
		{"users/:id", false, 3 + 1},
		{"files/*", true, 3 + 0 + SplatPenalty + ExactBonus},
		{"files/:name", true, 3 + 1 + ExactBonus},
		{"/", true, ExactBonus},
		{"a/:b?", true, 3 + 1 + ExactBonus},
	}

	for _, tt := range tests {
		p := MustCompile(tt.template, Options{End: tt.end})
		if p.Score() != tt.want {
			t.Errorf("Score(%q, end=%v) = %d, want %d", tt.template, tt.end, p.Score(), tt.want)
		}
	}

	if MustCompile("users/me", Options{End: true}).Score() <= MustCompile("users/:id", Options{End: true}).Score() {
		t.Error("static segment should outrank dynamic segment")
	}
	if MustCompile("files/*", Options{End: true}).Score() >= MustCompile("files/:name", Options{End: true}).Score() {
		t.Error("splat should rank below dynamic segment")
	}
	if MustCompile("a/b", Options{End: true}).Score() <= MustCompile("a/b", Options{}).Score() {
		t.Error("exact pattern should outrank prefix pattern")
	}
}

func TestMatchEnd(t *testing.T) {
	tests := []struct {
		template   string
		pathname   string
		wantNil    bool
		wantParams map[string]string
		wantPath   string
		wantBase   string
	}{
		{template: "users", pathname: "/users", wantParams: map[string]string{}, wantPath: "/users", wantBase: "/users"},
		{template: "users", pathname: "/users/", wantParams: map[string]string{}, wantPath: "/users", wantBase: "/users"},
		{template: "users", pathname: "/users/42", wantNil: true},
		{template: "users/:id", pathname: "/users/42", wantParams: map[string]string{"id": "42"}, wantPath: "/users/42", wantBase: "/users/42"},
		{template: "users/:id", pathname: "/users", wantNil: true},
		{template: "users/:id", pathname: "/users/a%20b", wantParams: map[string]string{"id": "a b"}, wantPath: "/users/a%20b", wantBase: "/users/a%20b"},
		{template: "users/:id", pathname: "/users/a%2Fb", wantParams: map[string]string{"id": "a%2Fb"}, wantPath: "/users/a%2Fb", wantBase: "/users/a%2Fb"},
		{template: "files/*", pathname: "/files/a/b.txt", wantParams: map[string]string{"*": "a/b.txt"}, wantPath: "/files/a/b.txt", wantBase: "/files"},
		{template: "files/*", pathname: "/files", wantParams: map[string]string{"*": ""}, wantPath: "/files", wantBase: "/files"},
		{template: "files/*", pathname: "/filesx", wantNil: true},
		{template: "*", pathname: "/anything/at/all", wantParams: map[string]string{"*": "anything/at/all"}, wantPath: "/anything/at/all", wantBase: "/"},
		{template: "/", pathname: "/", wantParams: map[string]string{}, wantPath: "/", wantBase: "/"},
		{template: "/", pathname: "/x", wantNil: true},
		{template: ":lang?/about", pathname: "/about", wantParams: map[string]string{}, wantPath: "/about", wantBase: "/about"},
		{template: ":lang?/about", pathname: "/en/about", wantParams: map[string]string{"lang": "en"}, wantPath: "/en/about", wantBase: "/en/about"},
		{template: "docs/edit?", pathname: "/docs/edit", wantParams: map[string]string{}, wantPath: "/docs/edit", wantBase: "/docs/edit"},
		{template: "docs/edit?", pathname: "/docs", wantParams: map[string]string{}, wantPath: "/docs", wantBase: "/docs"},
		{template: "Users", pathname: "/users", wantParams: map[string]string{}, wantPath: "/users", wantBase: "/users"},
	}

	for _, tt := range tests {
		t.Run(tt.template+" "+tt.pathname, func(t *testing.T) {
			p := MustCompile(tt.template, Options{End: true})
			m := p.Match(tt.pathname)
			if tt.wantNil {
				if m != nil {
					t.Fatalf("Match(%q) = %+v, want nil", tt.pathname, m)
				}
				return
			}
			if m == nil {
				t.Fatalf("Match(%q) = nil", tt.pathname)
			}
			if !reflect.DeepEqual(m.Params, tt.wantParams) {
				t.Errorf("Params = %v, want %v", m.Params, tt.wantParams)
			}
			if m.Pathname != tt.wantPath {
				t.Errorf("Pathname = %q, want %q", m.Pathname, tt.wantPath)
			}
			if m.PathnameBase != tt.wantBase {
				t.Errorf("PathnameBase = %q, want %q", m.PathnameBase, tt.wantBase)
			}
		})
	}
}

func TestMatchPrefix(t *testing.T) {
	p := MustCompile("users", Options{})

	m := p.Match("/users/42/edit")
	if m == nil || m.Pathname != "/users" {
		t.Fatalf("prefix Match = %+v", m)
	}
	if p.Match("/usersx") != nil {
		t.Error("prefix must stop at a segment boundary")
	}
	if m := p.Match("/users"); m == nil {
		t.Error("prefix should match the exact path too")
	}

	root := MustCompile("/", Options{})
	if m := root.Match("/anything"); m == nil || m.Pathname != "/" {
		t.Errorf("root prefix Match = %+v", m)
	}

	opt := MustCompile(":lang?", Options{})
	if m := opt.Match("/en/docs"); m == nil || m.Params["lang"] != "en" {
		t.Errorf("optional prefix Match = %+v", m)
	}
}

func TestMatchCaseSensitivity(t *testing.T) {
	insensitive := MustCompile("About", Options{End: true})
	if insensitive.Match("/about") == nil {
		t.Error("case-insensitive pattern should match")
	}
	sensitive := MustCompile("About", Options{End: true, CaseSensitive: true})
	if sensitive.Match("/about") != nil {
		t.Error("case-sensitive pattern should not match different case")
	}
	if sensitive.Match("/About") == nil {
		t.Error("case-sensitive pattern should match same case")
	}
}

func TestMatchStrict(t *testing.T) {
	p := MustCompile("users", Options{End: true, Strict: true})
	if p.Match("/users") == nil {
		t.Error("strict pattern should match exact path")
	}
	if p.Match("/users/") != nil {
		t.Error("strict pattern should reject trailing slash")
	}

	slash := MustCompile("users/", Options{End: true, Strict: true})
	if slash.Match("/users/") == nil {
		t.Error("strict slash pattern should match trailing slash")
	}
	if slash.Match("/users") != nil {
		t.Error("strict slash pattern should require trailing slash")
	}
}

func TestMatchDeterministic(t *testing.T) {
	p := MustCompile("a/:b/*", Options{End: true})
	first := p.Match("/a/x/y/z")
	for i := 0; i < 10; i++ {
		if got := p.Match("/a/x/y/z"); !reflect.DeepEqual(got, first) {
			t.Fatalf("Match not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestExplode(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{"a/:b?/:c?", []string{"a/:b/:c", "a/:b", "a/:c", "a"}},
		{"/:lang?", []string{"/:lang", "/"}},
		{"/docs/edit?", []string{"/docs/edit", "/docs"}},
		{"users/:id", []string{"users/:id"}},
	}
	for _, tt := range tests {
		got, err := Explode(tt.template)
		if err != nil {
			t.Fatalf("Explode(%q) error: %v", tt.template, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Explode(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestMatchPath(t *testing.T) {
	m, err := MatchPath("projects/:pid/tasks/:tid", Options{End: true}, "/projects/7/tasks/9")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Params["pid"] != "7" || m.Params["tid"] != "9" {
		t.Errorf("MatchPath = %+v", m)
	}
	if _, err := MatchPath("*/x", Options{}, "/"); err == nil {
		t.Error("MatchPath should surface compile errors")
	}
}
