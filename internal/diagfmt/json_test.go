package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 2 || out.Errors != 1 {
		t.Fatalf("count=%d errors=%d", out.Count, out.Errors)
	}
	first := out.Diagnostics[0]
	if first.Code != "CFG1002" || first.Target != "M:C.Save()" || first.Aspect != "Log" {
		t.Fatalf("unexpected first diagnostic %+v", first)
	}
	if first.Location == nil || first.Location.File != "snap.yaml" || first.Location.StartLine != 3 || first.Location.StartCol != 13 {
		t.Fatalf("unexpected location %+v", first.Location)
	}
	if len(first.Notes) != 1 || first.Notes[0].Location != nil {
		t.Fatalf("unexpected notes %+v", first.Notes)
	}
	if out.Diagnostics[1].Location != nil {
		t.Fatalf("positionless diagnostic must omit location")
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sampleBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("unexpected %+v", out)
	}
}
