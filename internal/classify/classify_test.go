package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/scan"
)

func descriptor(brand, name string, files ...string) scan.Descriptor {
	entries := make([]scan.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, scan.FileEntry{Path: f, Size: 1, ModTime: 1700000000})
	}
	return scan.NewDescriptor("/srv/"+brand+"/"+name, brand, name, entries)
}

func taskTitles(r Result) []string {
	var out []string
	for _, t := range r.Tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestClassify_TechDemoReady(t *testing.T) {
	res, err := Classify(descriptor(scan.BrandTech, "alpha", "README.md", "main.py", "tests/test_basic.py"), NewProject)
	require.NoError(t, err)

	// No manifest, so the type falls through to the default.
	assert.Equal(t, TypeCodeProject, res.Summary.Type)
	assert.Equal(t, StatusReadyForDemo, res.Summary.Status)
	assert.Empty(t, res.Tasks)
	require.Len(t, res.ContentItems, 1)
	assert.Equal(t, ContentSuggestion{Title: "Demo: alpha", Type: "case_study", Status: "idea", Source: SourceFilesystemSync}, res.ContentItems[0])
	assert.Equal(t, []string{TypeCodeProject, "automation", "ai"}, res.Summary.Tags)
	assert.Equal(t, "new_project: alpha (tech)", res.LogMessage)
}

func TestClassify_TechDemoReadyWithRequirements(t *testing.T) {
	res, err := Classify(descriptor(scan.BrandTech, "alpha", "README.md", "main.py", "requirements.txt", "tests/test_basic.py"), NewProject)
	require.NoError(t, err)
	assert.Equal(t, TypePythonApp, res.Summary.Type)
	assert.Equal(t, StatusReadyForDemo, res.Summary.Status)
	assert.Len(t, res.ContentItems, 1)
}

func TestClassify_TechTypePrecedence(t *testing.T) {
	cases := []struct {
		files []string
		want  string
	}{
		{[]string{"package.json", "pyproject.toml", "run.sh"}, TypeWebApp},
		{[]string{"pyproject.toml", "run.sh"}, TypePythonApp},
		{[]string{"scripts/deploy.ps1"}, TypeTool},
		{[]string{"main.go"}, TypeCodeProject},
		{[]string{"web/package.json"}, TypeCodeProject},
	}
	for _, tc := range cases {
		res, err := Classify(descriptor(scan.BrandTech, "p", tc.files...), NewProject)
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Summary.Type, "files %v", tc.files)
	}
}

func TestClassify_TechSuggestions(t *testing.T) {
	res, err := Classify(descriptor(scan.BrandTech, "bare", "main.go"), UpdatedProject)
	require.NoError(t, err)
	assert.Equal(t, StatusPrototype, res.Summary.Status)
	assert.Equal(t, []string{"Add README for project", "Add minimal tests"}, taskTitles(res))
	assert.Empty(t, res.ContentItems)

	res, err = Classify(descriptor(scan.BrandTech, "doc", "README.md"), UpdatedProject)
	require.NoError(t, err)
	assert.Equal(t, StatusWIP, res.Summary.Status)
	assert.Equal(t, []string{"Add minimal tests"}, taskTitles(res))

	res, err = Classify(descriptor(scan.BrandTech, "tested", "tests/a.py"), UpdatedProject)
	require.NoError(t, err)
	assert.Equal(t, StatusPrototype, res.Summary.Status)
	assert.Equal(t, []string{"Add README for project"}, taskTitles(res))
}

func TestClassify_RecordsMastered(t *testing.T) {
	res, err := Classify(descriptor(scan.BrandRecords, "night", "night_master.wav"), NewProject)
	require.NoError(t, err)
	assert.Equal(t, TypeSong, res.Summary.Type)
	assert.Equal(t, StatusReadyForRelease, res.Summary.Status)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Create release plan", res.Tasks[0].Title)
	assert.Equal(t, PriorityHigh, res.Tasks[0].Priority)
	require.Len(t, res.ContentItems, 1)
	assert.Equal(t, "teaser", res.ContentItems[0].Type)
	assert.Equal(t, "Teaser: night", res.ContentItems[0].Title)
	assert.Equal(t, []string{TypeSong, "records"}, res.Summary.Tags)
}

func TestClassify_RecordsStages(t *testing.T) {
	cases := []struct {
		files     []string
		status    string
		tasks     []string
		teaserLen int
	}{
		{[]string{"Final_MASTER.flac", "rough_mix.wav"}, StatusReadyForRelease, []string{"Create release plan"}, 1},
		{[]string{"v2_Mix.mp3"}, StatusMix, []string{"Get feedback on latest version"}, 1},
		{[]string{"take1.WAV"}, StatusProduction, []string{"Get feedback on latest version"}, 1},
		{[]string{"lyrics.txt", "hook.mid"}, StatusIdea, nil, 0},
	}
	for _, tc := range cases {
		res, err := Classify(descriptor(scan.BrandRecords, "track", tc.files...), NewProject)
		require.NoError(t, err)
		assert.Equal(t, tc.status, res.Summary.Status, "files %v", tc.files)
		assert.Equal(t, tc.tasks, taskTitles(res), "files %v", tc.files)
		assert.Len(t, res.ContentItems, tc.teaserLen, "files %v", tc.files)
	}
}

func TestClassify_RecordsTypePrecedence(t *testing.T) {
	cases := map[string]string{
		"Summer_Album_EP": TypeAlbum,
		"deep_cuts":       TypeEP,
		"Drum_Pack_01":    TypeBeatPack,
		"single":          TypeSong,
	}
	for name, want := range cases {
		res, err := Classify(descriptor(scan.BrandRecords, name, "x.mid"), NewProject)
		require.NoError(t, err)
		assert.Equal(t, want, res.Summary.Type, name)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	d := descriptor(scan.BrandTech, "alpha", "README.md", "package.json", "tests/x.test.js")
	first, err := Classify(d, UpdatedProject)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Classify(d, UpdatedProject)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassify_UnknownBrand(t *testing.T) {
	_, err := Classify(descriptor("games", "x"), NewProject)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestRuleTable_FirstMatchWins(t *testing.T) {
	always := func(Facts) bool { return true }
	table := RuleTable{
		{Name: "first", When: always, Then: "a"},
		{Name: "second", When: always, Then: "b"},
	}
	assert.Equal(t, "a", table.Resolve(Facts{}, "z"))
	assert.Equal(t, "z", RuleTable{}.Resolve(Facts{}, "z"))

	r, ok := table.Match(Facts{})
	assert.True(t, ok)
	assert.Equal(t, "first", r.Name)
}
