package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"montage/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	projectDir string
}

const ffmpegStub = `#!/bin/sh
for last; do :; done
printf 'FAKEVIDEO' > "$last"
echo "frame=5"
echo "progress=continue"
echo "frame=60"
echo "progress=end"
`

const ffprobeStub = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"png","width":64,"height":32}],"format":{"format_name":"png_pipe","nb_streams":1}}
JSON
`

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("MONTAGE_FFMPEG", "")
	t.Setenv("MONTAGE_FFPROBE", "")
	t.Setenv("MONTAGE_LOG_LEVEL", "")

	cfg := testsupport.NewConfig(t,
		testsupport.WithScript("ffmpeg", ffmpegStub),
		testsupport.WithScript("ffprobe", ffprobeStub),
		testsupport.WithFont("Inter", "Inter-Regular.ttf", goregular.TTF),
		testsupport.WithExportDefaults("320x180", 12),
	)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	return &cliTestEnv{
		baseDir:    base,
		configPath: testsupport.WriteConfig(t, cfg),
		outputDir:  cfg.Paths.OutputDir,
		projectDir: filepath.Join(base, "project"),
	}
}

// writeProject writes a logo image plus a project that overlays a title on
// it and returns the project path.
func (e *cliTestEnv) writeProject(t *testing.T) string {
	t.Helper()
	testsupport.WritePNG(t, filepath.Join(e.projectDir, "logo.png"), 64, 32)

	project := `{
  "name": "promo",
  "tracks": [{"id": "base", "order": 0}, {"id": "titles", "order": 1}],
  "clips": [
    {"id": "logo", "kind": "image", "sourceRef": "logo.png", "trackId": "base",
     "timelinePosition": {"start": 0, "end": 5},
     "transform": {"x": 10, "y": 20, "width": 64, "height": 32}},
    {"id": "ghost", "kind": "image", "sourceRef": "logo.png", "trackId": "base",
     "timelinePosition": {"start": 2, "end": 2}}
  ],
  "texts": [
    {"id": "title", "text": "Launch", "trackId": "titles",
     "timelinePosition": {"start": 1, "end": 4},
     "style": {"fontSize": 24, "color": "#ffffff", "align": "center"},
     "animation": {"kind": "fade", "fadeInSeconds": 0.5, "fadeOutSeconds": 0.5}}
  ]
}`
	path := filepath.Join(e.projectDir, "promo.json")
	testsupport.WriteBytes(t, path, []byte(project), 0o644)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# Config path: "+env.configPath)
	requireContains(t, out, "320x180")
}

func TestPlanCommandPrintsPaintOrderAndProgram(t *testing.T) {
	env := setupCLITestEnv(t)
	project := env.writeProject(t)

	out, _, err := runCLI(t, []string{"plan", project}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "promo: 320x180 @ 12 fps, 60 frames")
	requireContains(t, out, "Excluded (empty span): ghost")
	requireContains(t, out, "-filter_complex")
	requireContains(t, out, filepath.Join(env.projectDir, "logo.png"))
	if strings.Index(out, "logo") > strings.Index(out, "title") {
		t.Fatalf("media should paint before the title:\n%s", out)
	}
}

func TestPlanCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	project := env.writeProject(t)

	out, _, err := runCLI(t, []string{"plan", project, "--json", "--format", "webm"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var view planOutput
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode plan json: %v\n%s", err, out)
	}
	if len(view.Overlays) != 2 || view.Overlays[0].ID != "logo" || view.Overlays[1].ID != "title" {
		t.Fatalf("unexpected overlays %+v", view.Overlays)
	}
	if view.Overlays[0].X != 10 || view.Overlays[0].Y != 20 {
		t.Fatalf("logo placed at %v,%v", view.Overlays[0].X, view.Overlays[0].Y)
	}
	if !strings.HasSuffix(view.Args[len(view.Args)-1], "promo.webm") {
		t.Fatalf("output should use the webm extension: %v", view.Args)
	}
	if !strings.Contains(view.Filter, "[vout]") {
		t.Fatalf("filter graph missing video output: %s", view.Filter)
	}
}

func TestExportCommandWritesArtifactAndRecordsIt(t *testing.T) {
	env := setupCLITestEnv(t)
	project := env.writeProject(t)

	out, _, err := runCLI(t, []string{"export", project, "--quality", "medium"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	target := filepath.Join(env.outputDir, "promo.mp4")
	requireContains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "FAKEVIDEO" {
		t.Fatalf("unexpected artifact %q", data)
	}
	entries, err := os.ReadDir(filepath.Join(env.baseDir, "work"))
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace left behind: %d entries", len(entries))
	}

	out, _, err = runCLI(t, []string{"exports", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("exports list: %v", err)
	}
	var views []exportView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode exports: %v\n%s", err, out)
	}
	if len(views) != 1 {
		t.Fatalf("expected one export, got %d", len(views))
	}
	v := views[0]
	if v.Status != "done" || v.Project != "promo" || v.OutputPath != target || v.FileSizeBytes != int64(len("FAKEVIDEO")) {
		t.Fatalf("unexpected record %+v", v)
	}
	if v.DurationSeconds != 5 {
		t.Fatalf("duration = %v, want 5", v.DurationSeconds)
	}
}

func TestExportCommandRejectsUnknownEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	project := env.writeProject(t)

	_, _, err := runCLI(t, []string{"export", project, "--engine", "quantum"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "quantum") {
		t.Fatalf("expected engine validation error, got %v", err)
	}
}

func TestExportsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"exports", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("exports list: %v", err)
	}
	requireContains(t, out, "No exports recorded")

	if _, _, err := runCLI(t, []string{"exports", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestDoctorWithStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Default font")
	requireContains(t, out, "All required checks passed")
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"-y":                  "-y",
		"":                    "''",
		"a b":                 "'a b'",
		"[0:v]scale=1:2[out]": "'[0:v]scale=1:2[out]'",
		"it's":                `'it'\''s'`,
		"/tmp/out/promo.mp4":  "/tmp/out/promo.mp4",
	}
	for in, want := range tests {
		if got := shellQuote(in); got != want {
			t.Errorf("shellQuote(%q) = %q, want %q", in, got, want)
		}
	}
}
