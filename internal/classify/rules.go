package classify

import "strings"

// Facts are the descriptor properties the rules look at.
type Facts struct {
	Name  string
	Files []string
}

// Rule maps a condition to an outcome.
type Rule struct {
	Name string
	When func(Facts) bool
	Then string
}

// RuleTable is an ordered list of rules. The first matching rule wins.
type RuleTable []Rule

// Resolve returns the outcome of the first matching rule, or fallback.
func (t RuleTable) Resolve(f Facts, fallback string) string {
	if r, ok := t.Match(f); ok {
		return r.Then
	}
	return fallback
}

// Match returns the first rule whose condition holds.
func (t RuleTable) Match(f Facts) (Rule, bool) {
	for _, r := range t {
		if r.When(f) {
			return r, true
		}
	}
	return Rule{}, false
}

// Tech project types and stages.
const (
	TypeWebApp      = "web_app"
	TypePythonApp   = "python_app"
	TypeTool        = "tool"
	TypeCodeProject = "code_project"

	StatusReadyForDemo = "ready_for_demo"
	StatusWIP          = "wip"
	StatusPrototype    = "prototype"
)

// Records release units and stages.
const (
	TypeAlbum    = "album"
	TypeEP       = "ep"
	TypeBeatPack = "beat_pack"
	TypeSong     = "song"

	StatusReadyForRelease = "ready_for_release"
	StatusMix             = "mix"
	StatusProduction      = "production"
	StatusIdea            = "idea"
)

// TechTypeRules infers a tech project type from marker files at the project root.
var TechTypeRules = RuleTable{
	{Name: "node manifest", When: hasFile("package.json"), Then: TypeWebApp},
	{Name: "python manifest", When: anyOf(hasFile("pyproject.toml"), hasFile("requirements.txt")), Then: TypePythonApp},
	{Name: "scripts", When: anyFileSuffix(".sh", ".ps1"), Then: TypeTool},
}

// TechStatusRules infers a tech project stage.
var TechStatusRules = RuleTable{
	{Name: "readme and tests", When: allOf(hasReadme, hasTests), Then: StatusReadyForDemo},
	{Name: "readme", When: hasReadme, Then: StatusWIP},
}

// RecordsTypeRules infers a release unit from the folder name.
var RecordsTypeRules = RuleTable{
	{Name: "album", When: nameContains("album"), Then: TypeAlbum},
	{Name: "ep", When: nameContains("ep"), Then: TypeEP},
	{Name: "beat pack", When: nameContains("pack"), Then: TypeBeatPack},
}

// RecordsStatusRules infers a records stage from file names.
var RecordsStatusRules = RuleTable{
	{Name: "mastered", When: anyFileContainsFold("master"), Then: StatusReadyForRelease},
	{Name: "mixed", When: anyFileContainsFold("mix"), Then: StatusMix},
	{Name: "audio", When: anyFileSuffixFold(".wav", ".mp3", ".flac"), Then: StatusProduction},
}

func hasReadme(f Facts) bool { return hasFile("README.md")(f) }

func hasTests(f Facts) bool {
	for _, p := range f.Files {
		if strings.Contains(p, "tests") {
			return true
		}
	}
	return false
}

func hasFile(name string) func(Facts) bool {
	return func(f Facts) bool {
		for _, p := range f.Files {
			if p == name {
				return true
			}
		}
		return false
	}
}

func anyFileSuffix(suffixes ...string) func(Facts) bool {
	return func(f Facts) bool {
		for _, p := range f.Files {
			for _, s := range suffixes {
				if strings.HasSuffix(p, s) {
					return true
				}
			}
		}
		return false
	}
}

func anyFileSuffixFold(suffixes ...string) func(Facts) bool {
	return func(f Facts) bool {
		for _, p := range f.Files {
			lower := strings.ToLower(p)
			for _, s := range suffixes {
				if strings.HasSuffix(lower, s) {
					return true
				}
			}
		}
		return false
	}
}

func anyFileContainsFold(sub string) func(Facts) bool {
	return func(f Facts) bool {
		for _, p := range f.Files {
			if strings.Contains(strings.ToLower(p), sub) {
				return true
			}
		}
		return false
	}
}

func nameContains(sub string) func(Facts) bool {
	return func(f Facts) bool {
		return strings.Contains(strings.ToLower(f.Name), sub)
	}
}

func anyOf(conds ...func(Facts) bool) func(Facts) bool {
	return func(f Facts) bool {
		for _, c := range conds {
			if c(f) {
				return true
			}
		}
		return false
	}
}

func allOf(conds ...func(Facts) bool) func(Facts) bool {
	return func(f Facts) bool {
		for _, c := range conds {
			if !c(f) {
				return false
			}
		}
		return true
	}
}
